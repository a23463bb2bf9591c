package webhook

import (
	"encoding/json"
	"mime"
	"net/url"

	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

// envelope is the common part of all provider events.
type envelope struct {
	ID     string
	Type   string
	Object json.RawMessage
}

type jsonEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// formEnvelope is used by providers posting events as urlencoded forms.
// The object is taken from the re-fetched event then.
type formEnvelope struct {
	ID   string `schema:"id"`
	Type string `schema:"type"`
}

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func parseEnvelope(contentType string, body []byte) (*envelope, error) {
	mediaType := "application/json"
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid content type %q", contentType)
		}
		mediaType = mt
	}

	var env *envelope
	var err error
	if mediaType == "application/x-www-form-urlencoded" {
		env, err = parseFormEnvelope(body)
	} else {
		env, err = parseJSONEnvelope(body)
	}
	if err != nil {
		return nil, err
	}

	if env.ID == "" {
		return nil, errors.New("no event id")
	}

	return env, nil
}

func parseJSONEnvelope(body []byte) (*envelope, error) {
	var je jsonEnvelope
	if err := json.Unmarshal(body, &je); err != nil {
		return nil, errors.Wrap(err, "invalid event json")
	}

	return &envelope{
		ID:     je.ID,
		Type:   je.Type,
		Object: je.Data.Object,
	}, nil
}

func parseFormEnvelope(body []byte) (*envelope, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, errors.Wrap(err, "invalid event form")
	}

	var fe formEnvelope
	if err = formDecoder.Decode(&fe, values); err != nil {
		return nil, errors.Wrap(err, "failed to decode event form")
	}

	return &envelope{
		ID:   fe.ID,
		Type: fe.Type,
	}, nil
}
