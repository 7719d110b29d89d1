package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk policy document:
//
//	policies:
//	  sacred:
//	    classification: SACRED
//	    encryption_required: true
//	    access_controls: [AUTHENTICATED, OWNER_ONLY]
//	    two_factor_required: true
type File struct {
	Policies map[string]Rule `yaml:"policies"`
}

// DefaultRules are registered when no policy file is configured.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"sacred": {
			Classification:     ClassificationSacred,
			EncryptionRequired: true,
			AuditLevel:         AuditLevelFull,
			AccessControls:     []Predicate{PredicateAuthenticated, PredicateOwnerOnly},
			TwoFactorRequired:  true,
		},
		"personal": {
			Classification:         ClassificationPersonal,
			EncryptionRequired:     true,
			AuditLevel:             AuditLevelStandard,
			AccessControls:         []Predicate{PredicateAuthenticated, PredicateOwnerOnly},
			RetentionDays:          365,
			AnonymizationAfterDays: 180,
		},
		"behavioral": {
			Classification:         ClassificationBehavioral,
			EncryptionRequired:     true,
			AuditLevel:             AuditLevelStandard,
			AccessControls:         []Predicate{PredicateAuthenticated, PredicateAnalyticsOnly},
			RetentionDays:          90,
			AnonymizationAfterDays: 30,
		},
	}
}

// Parse decodes a policy document. Unknown keys are rejected.
func Parse(data []byte) (map[string]Rule, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("policy file is empty")
		}
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if len(f.Policies) == 0 {
		return nil, errors.New("policy file declares no policies")
	}
	return f.Policies, nil
}

// Marshal renders rules in the same document format Parse accepts.
func Marshal(rules map[string]Rule) ([]byte, error) {
	return yaml.Marshal(File{Policies: rules})
}

// LoadFile reads and parses path and returns the rules with the SHA-256 of
// the raw bytes. An empty path yields DefaultRules.
func LoadFile(path string) (map[string]Rule, string, error) {
	if path == "" {
		h := sha256.Sum256(nil)
		return DefaultRules(), "sha256:" + hex.EncodeToString(h[:]), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read policy file: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	h := sha256.Sum256(data)
	return rules, "sha256:" + hex.EncodeToString(h[:]), nil
}

// Load reads path and replaces the engine's rule set.
func (e *Engine) Load(path string) (string, error) {
	rules, hash, err := LoadFile(path)
	if err != nil {
		return "", err
	}
	if err := e.Replace(rules); err != nil {
		return "", err
	}
	return hash, nil
}
