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

// Package worldcat queries WorldCat services for related names.
package worldcat

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/logging"
)

// DefaultIdentitiesURL is used when no Identities URL is configured
const DefaultIdentitiesURL = "http://worldcat.org/identities/search/PersonalIdentities"

// Doer sends HTTP requests
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Utils wraps the WorldCat APIs. In silent mode failures are logged and an
// empty result returned.
type Utils struct {
	config config.WorldCatConfig
	client Doer
	silent bool
	ip     string
	logger *logging.Logger
}

// NewUtils creates WorldCat helpers. ip is the server address forwarded with
// requests, when known.
func NewUtils(cfg config.WorldCatConfig, client Doer, silent bool, ip string, logger *logging.Logger) *Utils {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Utils{
		config: cfg,
		client: client,
		silent: silent,
		ip:     ip,
		logger: logger.WithName("worldcat"),
	}
}

// Config returns the WorldCat settings
func (u *Utils) Config() config.WorldCatConfig {
	return u.config
}

// Silent reports whether errors are suppressed
func (u *Utils) Silent() bool {
	return u.silent
}

// ServerAddress returns the forwarded server address
func (u *Utils) ServerAddress() string {
	return u.ip
}

// Identity is a related name with the subjects associated with it
type Identity struct {
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}

type identitiesResponse struct {
	Records []struct {
		Identity struct {
			NameInfo struct {
				RawName struct {
					SubA string `xml:"suba"`
					SubD string `xml:"subd"`
				} `xml:"rawName"`
			} `xml:"nameInfo"`
			FastHeadings struct {
				Fast []string `xml:"fast"`
			} `xml:"fastHeadings"`
		} `xml:"recordData>Identity"`
	} `xml:"records>record"`
}

// GetRelatedIdentities returns up to maxRecords identities matching name
func (u *Utils) GetRelatedIdentities(ctx context.Context, name string, maxRecords int) ([]Identity, error) {
	identities, err := u.relatedIdentities(ctx, name, maxRecords)
	if err != nil {
		if u.silent {
			u.logger.Error(err, "WorldCat Identities lookup failed", "name", name)
			return []Identity{}, nil
		}
		return nil, err
	}
	return identities, nil
}

func (u *Utils) relatedIdentities(ctx context.Context, name string, maxRecords int) ([]Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []Identity{}, nil
	}
	if maxRecords <= 0 {
		maxRecords = 10
	}

	base := u.config.IdentitiesURL
	if base == "" {
		base = DefaultIdentitiesURL
	}
	query := url.Values{}
	query.Set("query", fmt.Sprintf(`local.Name all "%s"`, strings.ReplaceAll(name, `"`, "")))
	query.Set("version", "1.1")
	query.Set("operation", "searchRetrieve")
	query.Set("recordSchema", "info:srw/schema/10/Identities")
	query.Set("maximumRecords", strconv.Itoa(maxRecords))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build identities request: %w", err)
	}
	if u.ip != "" {
		req.Header.Set("X-Forwarded-For", u.ip)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identities request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identities request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read identities response: %w", err)
	}

	var parsed identitiesResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse identities response: %w", err)
	}

	identities := make([]Identity, 0, len(parsed.Records))
	for _, record := range parsed.Records {
		raw := record.Identity.NameInfo.RawName
		full := strings.TrimSpace(strings.TrimSpace(raw.SubA) + " " + strings.TrimSpace(raw.SubD))
		if full == "" {
			continue
		}
		subjects := make([]string, 0, len(record.Identity.FastHeadings.Fast))
		for _, s := range record.Identity.FastHeadings.Fast {
			if s = strings.TrimSpace(s); s != "" {
				subjects = append(subjects, s)
			}
		}
		identities = append(identities, Identity{Name: full, Subjects: subjects})
	}
	return identities, nil
}
