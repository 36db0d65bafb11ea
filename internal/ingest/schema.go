package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "housing-radar/internal/common/errors"
	"housing-radar/internal/scrape"
)

// noticeSchema guards the boundary between the scrapers and the pipeline.
// A scraper change that starts producing empty titles or bad platforms is
// caught here instead of polluting the store.
const noticeSchema = `{
	"type": "object",
	"required": ["title", "link", "platform"],
	"properties": {
		"title":    {"type": "string", "minLength": 1},
		"link":     {"type": "string", "minLength": 1},
		"platform": {"type": "string", "enum": ["SH", "LH", "MYHOME"]},
		"region":   {"type": "string"},
		"address":  {"type": "string"}
	}
}`

var noticeSchemaLoader = gojsonschema.NewStringLoader(noticeSchema)

type noticePayload struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Platform string `json:"platform"`
	Region   string `json:"region"`
	Address  string `json:"address"`
}

func validateNotice(n scrape.ScrapedNotice) error {
	payload, err := json.Marshal(noticePayload{
		Title:    n.Title,
		Link:     n.Link,
		Platform: string(n.Platform),
		Region:   n.Region,
		Address:  n.Address,
	})
	if err != nil {
		return commonerrors.Wrap(commonerrors.ErrCodePayloadInvalid, "encoding notice payload", err, false)
	}

	result, err := gojsonschema.Validate(noticeSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return commonerrors.Wrap(commonerrors.ErrCodePayloadInvalid, "validating notice payload", err, false)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return commonerrors.New(commonerrors.ErrCodePayloadInvalid,
			fmt.Sprintf("notice payload invalid: %s", strings.Join(reasons, "; ")), false)
	}
	return nil
}
