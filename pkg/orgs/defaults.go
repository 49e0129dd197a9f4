package orgs

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type orgDefaults struct {
	Settings OrgSettings `yaml:"settings"`
	Pages    []OrgPage   `yaml:"pages"`
}

// LoadDefaults parses the embedded default org settings and page tree.
func LoadDefaults() (OrgSettings, []OrgPage, error) {
	var d orgDefaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		return OrgSettings{}, nil, fmt.Errorf("failed to parse org defaults: %w", err)
	}
	return d.Settings, d.Pages, nil
}

// MergeSettings overlays requested language preferences onto the default
// settings blob. Unset preference fields keep the defaults.
func MergeSettings(defaults OrgSettings, prefs LanguagePreferences) OrgSettings {
	merged := defaults
	if prefs.Tenants != "" {
		merged.Language.Tenants = prefs.Tenants
	}
	if prefs.Properties != "" {
		merged.Language.Properties = prefs.Properties
	}
	if prefs.Tenancies != "" {
		merged.Language.Tenancies = prefs.Tenancies
	}
	return merged
}

// MergePages overlays a requested page-enablement tree onto the defaults.
// Requested entries replace default entries with the same label; unknown
// labels are appended.
func MergePages(defaults, requested []OrgPage) []OrgPage {
	if len(requested) == 0 {
		return defaults
	}

	byLabel := make(map[string]OrgPage, len(requested))
	for _, p := range requested {
		byLabel[p.Label] = p
	}

	merged := make([]OrgPage, 0, len(defaults))
	for _, p := range defaults {
		if override, ok := byLabel[p.Label]; ok {
			merged = append(merged, override)
			delete(byLabel, p.Label)
			continue
		}
		merged = append(merged, p)
	}
	for _, p := range requested {
		if _, pending := byLabel[p.Label]; pending {
			merged = append(merged, p)
			delete(byLabel, p.Label)
		}
	}
	return merged
}

// NormalizeOrgName derives the stored org name from the requested display
// name. Provisioned orgs are always suffixed.
func NormalizeOrgName(name string) string {
	return fmt.Sprintf("%s_org", name)
}
