// Package collection knows which web collections have spam rankings and how
// their submission directories are laid out under a dataset home.
package collection

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
)

// Preset describes one collection.
type Preset struct {
	Name string
	// SpamIndex is the Elasticsearch index with the collection's percentiles.
	SpamIndex string
	// NoResultDocID is the placeholder TREC expects for a topic with no
	// documents.
	NoResultDocID string
}

const (
	clueWeb09NoDocs = "clueweb09-en0000-00-00000"
	clueWeb12NoDocs = "clueweb12-0000wb-00-00000"
)

var presets = map[string]Preset{
	"CW09A": {Name: "CW09A", SpamIndex: "spam09a", NoResultDocID: clueWeb09NoDocs},
	"CW09B": {Name: "CW09B", SpamIndex: "spam09a", NoResultDocID: clueWeb09NoDocs},
	"MQ09":  {Name: "MQ09", SpamIndex: "spam09a", NoResultDocID: clueWeb09NoDocs},
	"MQE1":  {Name: "MQE1", SpamIndex: "spam09a", NoResultDocID: clueWeb09NoDocs},
	"CW12B": {Name: "CW12B", SpamIndex: "spam12a", NoResultDocID: clueWeb12NoDocs},
}

// Lookup returns the preset for name, case-insensitively.
func Lookup(name string) (Preset, error) {
	p, ok := presets[strings.ToUpper(name)]
	if !ok {
		return Preset{}, errors.Newf(errors.ErrInvalidInput,
			"%s: spam filtering is only applicable to ClueWeb09 and ClueWeb12 collections (%s)",
			name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the known collections in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InputRoot is where a collection's unfiltered runs live.
func (p Preset) InputRoot(home string) string {
	return filepath.Join(home, p.Name, "base_spam_runs")
}

// OutputRootTemplate is where a collection's filtered runs go.
func (p Preset) OutputRootTemplate(home string) string {
	return filepath.Join(home, p.Name, "spam_"+config.ThresholdPlaceholder+"_runs")
}

// Apply fills the pipeline and index settings that were left empty.
func (p Preset) Apply(cfg *config.Config) {
	if cfg.Elasticsearch.Index == "" {
		cfg.Elasticsearch.Index = p.SpamIndex
	}
	if cfg.Pipeline.NoResultDocID == "" {
		cfg.Pipeline.NoResultDocID = p.NoResultDocID
	}
	if cfg.Pipeline.Home == "" {
		return
	}
	if cfg.Pipeline.InputRoot == "" {
		cfg.Pipeline.InputRoot = p.InputRoot(cfg.Pipeline.Home)
	}
	if cfg.Pipeline.OutputRootTemplate == "" {
		cfg.Pipeline.OutputRootTemplate = p.OutputRootTemplate(cfg.Pipeline.Home)
	}
}
