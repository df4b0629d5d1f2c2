package providers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/systmms/dscreds/pkg/credentials"
)

// Store documents commonly spell the reserved keys differently. These
// aliases are folded onto the reserved names; every other field is kept
// verbatim.
var reservedAliases = map[string]string{
	"username": credentials.UserKey,
	"user":     credentials.UserKey,
	"password": credentials.PasswordKey,
}

// locator maps a logical identity to a location in a backing store.
// An explicit entry in secrets wins; otherwise prefix is prepended.
type locator struct {
	prefix  string
	secrets map[string]string
}

func newLocator(config map[string]interface{}) locator {
	return locator{
		prefix:  getString(config, "prefix"),
		secrets: getStringMap(config, "secrets"),
	}
}

func (l locator) locate(identity string) string {
	if loc, ok := l.secrets[identity]; ok && loc != "" {
		return loc
	}
	return l.prefix + identity
}

// parseSecretDocument turns a JSON object into a CredentialSet. A value
// that is not a JSON object is treated as a bare password.
func parseSecretDocument(raw string) (credentials.CredentialSet, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return credentials.CredentialSet{credentials.PasswordKey: raw}, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON credentials document: %w", err)
	}
	return fromDocument(doc)
}

// fromDocument converts a decoded document into a CredentialSet.
func fromDocument(doc map[string]interface{}) (credentials.CredentialSet, error) {
	set := make(credentials.CredentialSet, len(doc))

	// Deterministic order so that "user" beats "username" when both appear.
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := stringify(doc[k])
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", k, err)
		}
		if reserved, ok := reservedAliases[k]; ok {
			if _, taken := set[reserved]; taken && k != reserved {
				continue
			}
			set[reserved] = v
			continue
		}
		set[k] = v
	}
	return set, nil
}

func stringify(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case nil:
		return "", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value: %w", err)
		}
		return string(b), nil
	}
}

// Configuration helpers. Provider settings arrive as the inline map of a
// YAML provider block.

func getString(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func getBool(config map[string]interface{}, key string) (bool, bool) {
	v, ok := config[key].(bool)
	return v, ok
}

func getInt(config map[string]interface{}, key string) (int, bool) {
	switch v := config[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func getStringMap(config map[string]interface{}, key string) map[string]string {
	out := make(map[string]string)
	switch m := config[key].(type) {
	case map[string]interface{}:
		for k, v := range m {
			if s, err := stringify(v); err == nil {
				out[k] = s
			}
		}
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
