package agent

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/property"
	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

const (
	ReplyPropertyCard      = "property_card"
	ReplyPropertyScorecard = "property_scorecard"
)

// PropertyReply is the structured answer the frontend renders as cards.
type PropertyReply struct {
	Type       string              `json:"type" jsonschema:"enum=property_card,enum=property_scorecard"`
	Properties []property.Property `json:"properties" jsonschema:"minItems=1"`
}

// Reply is the final answer of a run. Card is set when Text is a valid
// PropertyReply, in which case Text is the compact JSON object. Fields the
// struct does not declare, such as scorecard scores, are kept in Text.
type Reply struct {
	Text string
	Card *PropertyReply
}

// Reply kinds reported to metrics.
const (
	kindText     = "text"
	kindCard     = "card"
	kindRepaired = "repaired"
)

type replyValidator struct {
	schema *gojsonschema.Schema
}

func newReplyValidator() (*replyValidator, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&PropertyReply{})
	// gojsonschema predates draft 2020-12; validate against the keywords only.
	schema.Version = ""
	schema.ID = ""

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode reply schema")
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile reply schema")
	}
	return &replyValidator{schema: compiled}, nil
}

// finalize turns the model's final text into a Reply. A JSON object that
// matches PropertyReply is returned compacted with every field it carried.
// One that does not is replaced by a card built from the records it refers
// to, if any. Anything else is passed through untouched.
func (v *replyValidator) finalize(text string, records []property.Property) (Reply, string) {
	candidate, ok := jsonObject(text)
	if !ok {
		return Reply{Text: text}, kindText
	}

	if card, ok := v.parse(candidate); ok {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(candidate)); err != nil {
			return Reply{Text: text}, kindText
		}
		return Reply{Text: buf.String(), Card: card}, kindCard
	}
	if matched := referencedRecords(candidate, records); len(matched) > 0 {
		card := &PropertyReply{Type: ReplyPropertyCard, Properties: matched}
		b, err := encodeJSON(card)
		if err != nil {
			return Reply{Text: text}, kindText
		}
		return Reply{Text: b, Card: card}, kindRepaired
	}
	return Reply{Text: text}, kindText
}

func (v *replyValidator) parse(candidate string) (*PropertyReply, bool) {
	result, err := v.schema.Validate(gojsonschema.NewStringLoader(candidate))
	if err != nil || !result.Valid() {
		return nil, false
	}
	var card PropertyReply
	if err := json.Unmarshal([]byte(candidate), &card); err != nil {
		return nil, false
	}
	return &card, true
}

// referencedRecords picks the records an invalid card talks about. A card
// that names no addresses refers to all of them. One that names addresses
// refers only to records matching one of them.
func referencedRecords(candidate string, records []property.Property) []property.Property {
	if len(records) == 0 {
		return nil
	}
	var partial struct {
		Properties []struct {
			Address string `json:"address"`
		} `json:"properties"`
	}
	_ = json.Unmarshal([]byte(candidate), &partial)

	var addresses []string
	for _, p := range partial.Properties {
		if a := normalizeAddress(p.Address); a != "" {
			addresses = append(addresses, a)
		}
	}
	if len(addresses) == 0 {
		return records
	}

	var matched []property.Property
	for _, r := range records {
		have := normalizeAddress(r.Address)
		if have == "" {
			continue
		}
		for _, a := range addresses {
			if strings.Contains(have, a) || strings.Contains(a, have) {
				matched = append(matched, r)
				break
			}
		}
	}
	return matched
}

func normalizeAddress(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// encodeJSON marshals v without HTML escaping so URLs keep their '&'.
func encodeJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// jsonObject returns the outermost {...} span of s. Models often wrap the
// object in prose or a code fence.
func jsonObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
