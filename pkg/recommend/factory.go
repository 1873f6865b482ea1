/*
Copyright 2024 The Shelfline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package recommend

import (
	"github.com/ahoma/shelfline/pkg/di"
)

// Factories returns the module factories keyed by module name
func Factories(deps Dependencies) map[string]di.Factory {
	cfg := deps.Config
	return map[string]di.Factory{
		"AuthorFacets": func(di.Resolver) (any, error) {
			return NewAuthorFacets(deps.Results), nil
		},
		"AuthorInfo": func(di.Resolver) (any, error) {
			return NewAuthorInfo(deps.Results, deps.HTTP.CreateClient(), cfg.Content), nil
		},
		"AuthorityRecommend": func(di.Resolver) (any, error) {
			return NewAuthorityRecommend(deps.Results), nil
		},
		"CatalogResults": func(di.Resolver) (any, error) {
			return NewCatalogResults(deps.Runner), nil
		},
		"CollectionSideFacets": func(di.Resolver) (any, error) {
			return NewCollectionSideFacets(cfg.Facets, deps.HierarchicalFacets), nil
		},
		"DPLATerms": func(di.Resolver) (any, error) {
			if cfg.DPLA.APIKey == "" {
				return nil, di.NewConfigurationError("DPLATerms", "dpla.apiKey", "DPLA API key missing from configuration.")
			}
			return NewDPLATerms(cfg.DPLA, deps.HTTP.CreateClient()), nil
		},
		"EuropeanaResults": func(di.Resolver) (any, error) {
			return NewEuropeanaResults(cfg.Content, deps.HTTP.CreateClient()), nil
		},
		"ExpandFacets": func(di.Resolver) (any, error) {
			empty, err := deps.Results.Get("Solr")
			if err != nil {
				return nil, err
			}
			return NewExpandFacets(cfg.Facets, empty), nil
		},
		"FavoriteFacets": func(di.Resolver) (any, error) {
			return NewFavoriteFacets(cfg.Facets, deps.HierarchicalFacets, deps.Capabilities.TagSetting()), nil
		},
		"MapSelection": func(di.Resolver) (any, error) {
			backend, err := deps.Backends.Get("Solr")
			if err != nil {
				return nil, err
			}
			return NewMapSelection(cfg.MapSelection, backend), nil
		},
		"RandomRecommend": func(di.Resolver) (any, error) {
			return NewRandomRecommend(deps.Search, deps.Params), nil
		},
		"SideFacets": func(di.Resolver) (any, error) {
			return NewSideFacets(cfg.Facets, deps.HierarchicalFacets), nil
		},
		"SummonBestBets": func(di.Resolver) (any, error) {
			return NewSummonBestBets(deps.Results), nil
		},
		"SummonDatabases": func(di.Resolver) (any, error) {
			return NewSummonDatabases(deps.Results), nil
		},
		"SummonResults": func(di.Resolver) (any, error) {
			return NewSummonResults(deps.Runner), nil
		},
		"SummonTopics": func(di.Resolver) (any, error) {
			return NewSummonTopics(deps.Results), nil
		},
		"SwitchQuery": func(di.Resolver) (any, error) {
			return NewSwitchQuery(deps.Backends), nil
		},
		"TopFacets": func(di.Resolver) (any, error) {
			return NewTopFacets(cfg.Facets), nil
		},
		"VisualFacets": func(di.Resolver) (any, error) {
			return NewVisualFacets(cfg.Facets), nil
		},
		"WebResults": func(di.Resolver) (any, error) {
			return NewWebResults(deps.Runner), nil
		},
		"WorldCatIdentities": func(di.Resolver) (any, error) {
			return NewWorldCatIdentities(deps.WorldCat), nil
		},
	}
}
