package scrape

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	commonerrors "housing-radar/internal/common/errors"
	commonhttp "housing-radar/internal/common/http"
)

// ExtractPDFText returns the plain text of a PDF document. Portals attach
// the full notice body as a PDF when the web page only carries a stub.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", commonerrors.Wrap(commonerrors.ErrCodePDFExtractFailed, "opening pdf", err, false)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", commonerrors.Wrap(commonerrors.ErrCodePDFExtractFailed, "extracting pdf text", err, false)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", commonerrors.Wrap(commonerrors.ErrCodePDFExtractFailed, "reading pdf text", err, false)
	}
	return sb.String(), nil
}

// FetchPDFText downloads a PDF attachment and extracts its text.
func FetchPDFText(ctx context.Context, client *commonhttp.Client, url string) (string, error) {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return "", commonerrors.Wrap(commonerrors.ErrCodePDFExtractFailed, "downloading pdf", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", commonerrors.New(commonerrors.ErrCodePDFExtractFailed, "pdf download returned non-200", true)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", commonerrors.Wrap(commonerrors.ErrCodePDFExtractFailed, "reading pdf body", err, true)
	}
	return ExtractPDFText(data)
}
