package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "key" or "uri"); placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"parse_error":                "invalid schema JSON: {reason}",
		"duplicate_key":              "key {key} appears more than once",
		"missing_credential_subject": "schema must include a credentialSubject property",
		"already_exists":             "field {key} already exists",
		"not_found":                  "no field at {path}",
		"invalid_path":               "invalid field path {path}",
		"title_required":             "title is required",
		"normalization_failed":       "JSON-LD normalization failed; check the schema structure",
		"invalid_context_uri":        "invalid context URI format",
		"example_mismatch":           "example does not match type {type}",
		"unwrapped_properties":       "nested properties wrapper was unwrapped",
		"schema_violation":           "generated example does not satisfy the schema: {reason}",
	},
	"ja": {
		"parse_error":                "スキーマJSONが不正です: {reason}",
		"duplicate_key":              "キー {key} が重複しています",
		"missing_credential_subject": "credentialSubject プロパティが必要です",
		"already_exists":             "フィールド {key} は既に存在します",
		"not_found":                  "{path} にフィールドがありません",
		"invalid_path":               "フィールドパス {path} が不正です",
		"title_required":             "タイトルは必須です",
		"normalization_failed":       "JSON-LD の正規化に失敗しました",
		"invalid_context_uri":        "コンテキストURIの形式が不正です",
		"example_mismatch":           "例の値が型 {type} と一致しません",
		"unwrapped_properties":       "入れ子の properties ラッパーを展開しました",
		"schema_violation":           "生成した例がスキーマを満たしません: {reason}",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
