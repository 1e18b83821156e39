// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"classkit-cli/internal/issue"
	"classkit-cli/pkg/cueutil"

	"github.com/spf13/viper"
)

//go:embed core_schema.cue
var coreSchema []byte

// Core keys recognized in the reserved section. Platform plugins consume
// the connection values; the plugin loader consumes plugins.
const (
	KeyBaseURL     = "base_url"
	KeyOrg         = "org"
	KeyUser        = "user"
	KeyToken       = "token"
	KeyTemplateOrg = "template_org"
	KeyPlugins     = "plugins"
)

// coreKeys lists every key the provider layers through Viper.
var coreKeys = []string{KeyBaseURL, KeyOrg, KeyUser, KeyToken, KeyTemplateOrg, KeyPlugins}

// CoreConfig is the typed view of the reserved [classkit] section after
// layering defaults, store values and CLASSKIT_* environment variables.
type CoreConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Org         string `mapstructure:"org"`
	User        string `mapstructure:"user"`
	Token       string `mapstructure:"token"`
	TemplateOrg string `mapstructure:"template_org"`
	Plugins     string `mapstructure:"plugins"`
}

// PluginNames returns the configured plugin list, split on commas.
func (c *CoreConfig) PluginNames() []string {
	if strings.TrimSpace(c.Plugins) == "" {
		return nil
	}
	parts := strings.Split(c.Plugins, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// StorePath forces loading from a specific store file when set.
	StorePath string
}

// Provider loads the core configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*CoreConfig, *Store, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load opens the configuration store, validates every core section in the
// parent chain against the CUE schema, and layers the effective core
// values with defaults and environment variables.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*CoreConfig, *Store, error) {
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("load configuration canceled: %w", ctx.Err())
	default:
	}

	path := opts.StorePath
	if path == "" {
		var err error
		if path, err = DefaultStorePath(); err != nil {
			return nil, nil, err
		}
	}

	store, err := NewStore(path)
	if err != nil {
		return nil, nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Check that the file is valid TOML").
			WithSuggestion("Run 'classkit config show' to inspect what classkit can read").
			Wrap(err).
			BuildError()
	}

	if err := ValidateCoreSections(store); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	for _, key := range coreKeys {
		v.SetDefault(key, "")
	}
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	values := map[string]any{}
	for _, key := range coreKeys {
		if val, ok := store.Get(CoreSection, key); ok {
			values[key] = val
		}
	}
	if err := v.MergeConfigMap(values); err != nil {
		return nil, nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	var cfg CoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, store, nil
}

// ValidateCoreSections checks the local [classkit] section of every store
// in the parent chain against the core schema. Unknown keys surface as
// configuration errors naming the offending file and key.
func ValidateCoreSections(store *Store) error {
	for node := store; node != nil; node = node.Parent() {
		section := map[string]string{}
		for _, key := range node.Keys(CoreSection) {
			section[key], _ = node.Get(CoreSection, key)
		}
		if len(section) == 0 {
			continue
		}
		if err := cueutil.ValidateAgainst(coreSchema, section, "#Core", node.Path()); err != nil {
			return issue.NewErrorContext().
				WithOperation("validate configuration").
				WithResource(node.Path()).
				WithSuggestion(fmt.Sprintf("Allowed keys in [%s]: %s", CoreSection, strings.Join(append(coreKeys[:len(coreKeys):len(coreKeys)], ParentConfigKey), ", "))).
				Wrap(err).
				BuildError()
		}
	}
	return nil
}
