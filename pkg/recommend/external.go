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
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/language"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/search"
	"github.com/ahoma/shelfline/pkg/worldcat"
)

// ExternalRecord is a hit from an external API
type ExternalRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
	Provider    string `json:"provider,omitempty"`
}

// DPLATerms shows Digital Public Library of America hits for the search
// terms.
// Settings: [limit (default 5)]
type DPLATerms struct {
	lookforModule
	apiKey   string
	endpoint string
	client   search.JSONFetcher
	limit    int
	records  []ExternalRecord
}

// NewDPLATerms creates the module
func NewDPLATerms(cfg config.DPLAConfig, client search.JSONFetcher) *DPLATerms {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = "https://api.dp.la/v2/items"
	}
	return &DPLATerms{apiKey: cfg.APIKey, endpoint: endpoint, client: client, limit: 5}
}

// APIKey returns the configured API key
func (m *DPLATerms) APIKey() string {
	return m.apiKey
}

// SetConfig implements Module
func (m *DPLATerms) SetConfig(s string) error {
	m.limit = parseSettings(s).int(0, 5)
	return nil
}

// Init implements Module
func (m *DPLATerms) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

// Process implements Module
func (m *DPLATerms) Process(ctx context.Context, _ *search.Results) error {
	m.records = []ExternalRecord{}
	if m.lookfor == "" {
		return nil
	}
	v := url.Values{}
	v.Set("api_key", m.apiKey)
	v.Set("q", m.lookfor)
	v.Set("page_size", strconv.Itoa(m.limit))
	body, err := m.client.GetJSON(ctx, m.endpoint+"?"+v.Encode())
	if err != nil {
		return err
	}
	body.Get("docs").ForEach(func(_, doc gjson.Result) bool {
		m.records = append(m.records, ExternalRecord{
			ID:          doc.Get("id").String(),
			Title:       firstOf(doc.Get("sourceResource.title")),
			Description: firstOf(doc.Get("sourceResource.description")),
			Link:        doc.Get("isShownAt").String(),
			Provider:    doc.Get("dataProvider").String(),
		})
		return true
	})
	return nil
}

// Data implements Module
func (m *DPLATerms) Data() any {
	return m.records
}

// firstOf returns v, or its first element when v is an array
func firstOf(v gjson.Result) string {
	if v.IsArray() {
		return v.Get("0").String()
	}
	return v.String()
}

// EuropeanaResults shows Europeana hits for the search terms.
// Settings: [request parameter (default "lookfor")]:[limit (default 5)]:[excluded providers, comma separated]
type EuropeanaResults struct {
	lookforModule
	apiKey   string
	endpoint string
	client   search.JSONFetcher
	limit    int
	excluded []string
	records  []ExternalRecord
}

// NewEuropeanaResults creates the module
func NewEuropeanaResults(cfg config.ContentConfig, client search.JSONFetcher) *EuropeanaResults {
	endpoint := cfg.EuropeanaURL
	if endpoint == "" {
		endpoint = "https://api.europeana.eu/record/v2/search.json"
	}
	return &EuropeanaResults{apiKey: cfg.EuropeanaAPI, endpoint: endpoint, client: client, limit: 5}
}

// SetConfig implements Module
func (m *EuropeanaResults) SetConfig(s string) error {
	parts := parseSettings(s)
	m.param = parts.get(0, "lookfor")
	m.limit = parts.int(1, 5)
	m.excluded = splitComma(parts.get(2, ""))
	return nil
}

// Init implements Module
func (m *EuropeanaResults) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

// Process implements Module
func (m *EuropeanaResults) Process(ctx context.Context, _ *search.Results) error {
	m.records = []ExternalRecord{}
	if m.lookfor == "" || m.apiKey == "" {
		return nil
	}
	query := m.lookfor
	for _, provider := range m.excluded {
		query += ` NOT PROVIDER:"` + provider + `"`
	}
	v := url.Values{}
	v.Set("wskey", m.apiKey)
	v.Set("query", query)
	v.Set("rows", strconv.Itoa(m.limit))
	body, err := m.client.GetJSON(ctx, m.endpoint+"?"+v.Encode())
	if err != nil {
		return err
	}
	body.Get("items").ForEach(func(_, item gjson.Result) bool {
		m.records = append(m.records, ExternalRecord{
			ID:       item.Get("id").String(),
			Title:    firstOf(item.Get("title")),
			Link:     item.Get("guid").String(),
			Provider: firstOf(item.Get("provider")),
		})
		return true
	})
	return nil
}

// Data implements Module
func (m *EuropeanaResults) Data() any {
	return m.records
}

// AuthorInfoData is what AuthorInfo shows
type AuthorInfoData struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Image       string `json:"image,omitempty"`
	Link        string `json:"link,omitempty"`
	WorkCount   int    `json:"workCount"`
}

// AuthorInfo shows a biography of the author being searched for.
// Settings: [language (default "en")]
type AuthorInfo struct {
	lookforModule
	results  *search.ResultsManager
	client   search.JSONFetcher
	sources  []string
	endpoint string
	language string
	data     *AuthorInfoData
}

// NewAuthorInfo creates the module. cfg.Authors is the comma separated list
// of biography sources; only "Wikipedia" is supported.
func NewAuthorInfo(results *search.ResultsManager, client search.JSONFetcher, cfg config.ContentConfig) *AuthorInfo {
	endpoint := cfg.WikipediaURL
	if endpoint == "" {
		endpoint = "https://{lang}.wikipedia.org/api/rest_v1"
	}
	return &AuthorInfo{
		results:  results,
		client:   client,
		sources:  splitComma(cfg.Authors),
		endpoint: endpoint,
		language: "en",
	}
}

// Sources returns the enabled biography sources
func (m *AuthorInfo) Sources() []string {
	return m.sources
}

// SetConfig implements Module
func (m *AuthorInfo) SetConfig(s string) error {
	lang, err := wikipediaLanguage(parseSettings(s).get(0, "en"))
	if err != nil {
		return err
	}
	m.language = lang
	return nil
}

// wikipediaLanguage reduces a language setting to the base language subtag
// used as the Wikipedia host prefix
func wikipediaLanguage(setting string) (string, error) {
	tag, err := language.Parse(setting)
	if err != nil {
		return "", fmt.Errorf("invalid AuthorInfo language %q: %w", setting, err)
	}
	base, confidence := tag.Base()
	if confidence != language.Exact {
		return "", fmt.Errorf("invalid AuthorInfo language %q: no base language", setting)
	}
	return base.String(), nil
}

// Init implements Module
func (m *AuthorInfo) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

func (m *AuthorInfo) wikipediaEnabled() bool {
	for _, s := range m.sources {
		if strings.EqualFold(s, "wikipedia") {
			return true
		}
	}
	return false
}

// Process implements Module
func (m *AuthorInfo) Process(ctx context.Context, results *search.Results) error {
	m.data = nil
	if m.lookfor == "" || !m.wikipediaEnabled() {
		return nil
	}
	name := displayName(m.lookfor)
	data := &AuthorInfoData{Name: name}

	base := strings.ReplaceAll(m.endpoint, "{lang}", m.language)
	body, err := m.client.GetJSON(ctx, base+"/page/summary/"+url.PathEscape(strings.ReplaceAll(name, " ", "_")))
	if err != nil {
		return err
	}
	if body.Get("type").String() == "disambiguation" {
		return nil
	}
	data.Description = body.Get("description").String()
	data.Summary = body.Get("extract").String()
	data.Image = body.Get("thumbnail.source").String()
	data.Link = body.Get("content_urls.desktop.page").String()

	if results != nil && results.Performed() {
		data.WorkCount = results.Total()
	} else {
		authored, err := m.results.Get("Solr")
		if err != nil {
			return err
		}
		authored.Params().Lookfor = m.lookfor
		authored.Params().Handler = "Author"
		authored.Params().Limit = 0
		if err := authored.PerformAndProcessSearch(ctx); err != nil {
			return err
		}
		data.WorkCount = authored.Total()
	}
	m.data = data
	return nil
}

// displayName turns "Last, First" into "First Last" and drops trailing dates
func displayName(heading string) string {
	heading = strings.TrimSpace(heading)
	heading = strings.TrimRight(heading, "0123456789-., ")
	last, first, ok := strings.Cut(heading, ",")
	if !ok {
		return heading
	}
	return strings.TrimSpace(first) + " " + strings.TrimSpace(last)
}

// Data implements Module
func (m *AuthorInfo) Data() any {
	return m.data
}

// WorldCatIdentities shows WorldCat identities related to the search terms.
// Settings: [limit (default 5)]
type WorldCatIdentities struct {
	lookforModule
	utils      *worldcat.Utils
	limit      int
	identities []worldcat.Identity
}

// NewWorldCatIdentities creates the module
func NewWorldCatIdentities(utils *worldcat.Utils) *WorldCatIdentities {
	return &WorldCatIdentities{utils: utils, limit: 5}
}

// SetConfig implements Module
func (m *WorldCatIdentities) SetConfig(s string) error {
	m.limit = parseSettings(s).int(0, 5)
	return nil
}

// Init implements Module
func (m *WorldCatIdentities) Init(params *search.Params, request url.Values) error {
	m.initLookfor(params, request)
	return nil
}

// Process implements Module
func (m *WorldCatIdentities) Process(ctx context.Context, _ *search.Results) error {
	m.identities = []worldcat.Identity{}
	if m.lookfor == "" {
		return nil
	}
	identities, err := m.utils.GetRelatedIdentities(ctx, m.lookfor, m.limit)
	if err != nil {
		return err
	}
	if identities != nil {
		m.identities = identities
	}
	return nil
}

// Data implements Module
func (m *WorldCatIdentities) Data() any {
	return m.identities
}
