package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/shaiso/webprobe/internal/domain"
)

// Префиксы правил извлечения переменных.
const (
	PrefixRegex    = "regex:"
	PrefixJSONPath = "jsonpath:"
	PrefixXPath    = "xmlxpath:"
)

// IsLiteral проверяет, что значение переменной — обычная строка, а не правило извлечения.
func IsLiteral(value string) bool {
	return !strings.HasPrefix(value, PrefixRegex) &&
		!strings.HasPrefix(value, PrefixJSONPath) &&
		!strings.HasPrefix(value, PrefixXPath)
}

// SeedVariables возвращает значения переменных-литералов.
// Вызывается в начале прогона, до первого ответа.
func SeedVariables(rules domain.Pairs) (map[string]string, error) {
	updates := make(map[string]string, len(rules))
	for _, rule := range rules {
		if !validVariableName(rule.Key) {
			return nil, fmt.Errorf("%w %q", ErrInvalidVariableName, rule.Key)
		}
		if IsLiteral(rule.Value) {
			updates[rule.Key] = rule.Value
		}
	}
	return updates, nil
}

// Extract применяет правила к странице ответа по порядку.
//
// Возвращает новые значения переменных; кэш вызывающего не меняется.
// Первая ошибка прерывает обработку.
func Extract(rules domain.Pairs, page []byte) (map[string]string, error) {
	updates := make(map[string]string, len(rules))
	doc := &parsedPage{raw: page}

	for _, rule := range rules {
		if !validVariableName(rule.Key) {
			return nil, fmt.Errorf("%w %q", ErrInvalidVariableName, rule.Key)
		}

		value, err := extractValue(rule.Value, doc)
		if err != nil {
			return nil, fmt.Errorf("cannot extract the value of \"%s\" from response: %w", rule.Key, err)
		}
		updates[rule.Key] = value
	}

	return updates, nil
}

func extractValue(spec string, doc *parsedPage) (string, error) {
	switch {
	case strings.HasPrefix(spec, PrefixRegex):
		return extractRegex(strings.TrimPrefix(spec, PrefixRegex), doc.raw)
	case strings.HasPrefix(spec, PrefixJSONPath):
		return extractJSONPath(strings.TrimPrefix(spec, PrefixJSONPath), doc)
	case strings.HasPrefix(spec, PrefixXPath):
		return extractXPath(strings.TrimPrefix(spec, PrefixXPath), doc)
	default:
		return spec, nil
	}
}

// extractRegex возвращает первую группу, а если групп нет — всё совпадение.
func extractRegex(pattern string, page []byte) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regular expression: %w", err)
	}

	m := re.FindSubmatch(page)
	if m == nil {
		return "", ErrExtractFailed
	}
	if len(m) > 1 {
		return string(m[1]), nil
	}
	return string(m[0]), nil
}

func extractJSONPath(path string, doc *parsedPage) (string, error) {
	data, err := doc.decodeJSON()
	if err != nil {
		return "", err
	}

	val, err := jsonpath.Get(path, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	return stringify(val)
}

func extractXPath(expr string, doc *parsedPage) (string, error) {
	root, err := doc.parseHTML()
	if err != nil {
		return "", err
	}

	compiled, err := xpath.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("invalid xpath: %w", err)
	}

	switch v := compiled.Evaluate(htmlquery.CreateXPathNavigator(root)).(type) {
	case *xpath.NodeIterator:
		if !v.MoveNext() {
			return "", ErrExtractFailed
		}
		return v.Current().Value(), nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", ErrExtractFailed
	}
}

// stringify приводит результат jsonpath к строке:
// скаляры как есть, объекты и массивы как JSON.
func stringify(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case nil:
		return "null", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// parsedPage разбирает страницу лениво и не более одного раза на ответ.
type parsedPage struct {
	raw []byte

	jsonData   any
	jsonErr    error
	jsonParsed bool

	htmlRoot   *html.Node
	htmlErr    error
	htmlParsed bool
}

func (p *parsedPage) decodeJSON() (any, error) {
	if !p.jsonParsed {
		p.jsonParsed = true
		if err := json.Unmarshal(p.raw, &p.jsonData); err != nil {
			p.jsonErr = fmt.Errorf("cannot parse response as JSON: %w", err)
		}
	}
	return p.jsonData, p.jsonErr
}

func (p *parsedPage) parseHTML() (*html.Node, error) {
	if !p.htmlParsed {
		p.htmlParsed = true
		p.htmlRoot, p.htmlErr = html.Parse(bytes.NewReader(p.raw))
		if p.htmlErr != nil {
			p.htmlErr = fmt.Errorf("cannot parse response as XML: %w", p.htmlErr)
		}
	}
	return p.htmlRoot, p.htmlErr
}
