package shipstation

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// ---------------------------------------------------------------------------
// $batch Change Sets
// ---------------------------------------------------------------------------

// commitBatch sends every change as one change set of a $batch request.
// The service applies a change set atomically.
func (s *session) commitBatch(ctx context.Context, changes []change) error {
	body, contentType, err := encodeBatch(s.client.config.BaseURL, changes)
	if err != nil {
		return err
	}

	resp, err := s.client.doRequest(ctx, s.creds, http.MethodPost, s.client.config.BaseURL+"/$batch", contentType, bytes.NewReader(body))
	if err != nil {
		return err
	}

	results, err := decodeBatch(resp.header.Get("Content-Type"), resp.body)
	if err != nil {
		return err
	}
	if len(results) != len(changes) {
		return fmt.Errorf("%w: batch returned %d responses for %d changes", fulfillment.ErrRemoteInvalidResponse, len(results), len(changes))
	}

	for i, c := range changes {
		if c.kind == changeInsert {
			if err := applyCreated(c.entity, results[i].body); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeBatch writes changes as a multipart/mixed body holding one change set.
// Embedded request lines use absolute URLs under root.
func encodeBatch(root string, changes []change) ([]byte, string, error) {
	var buf bytes.Buffer
	batch := multipart.NewWriter(&buf)
	if err := batch.SetBoundary("batch_" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	var set bytes.Buffer
	changeset := multipart.NewWriter(&set)
	if err := changeset.SetBoundary("changeset_" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	for i, c := range changes {
		part, err := changeset.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/http"},
			"Content-Transfer-Encoding": {"binary"},
			"Content-ID":                {strconv.Itoa(i + 1)},
		})
		if err != nil {
			return nil, "", err
		}
		if err := writeChange(part, root, c); err != nil {
			return nil, "", err
		}
	}
	if err := changeset.Close(); err != nil {
		return nil, "", err
	}

	part, err := batch.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/mixed; boundary=" + changeset.Boundary()},
	})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(set.Bytes()); err != nil {
		return nil, "", err
	}
	if err := batch.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), "multipart/mixed; boundary=" + batch.Boundary(), nil
}

// writeChange writes one embedded HTTP request
func writeChange(w io.Writer, root string, c change) error {
	var payload []byte
	if c.kind != changeDelete {
		data, err := encodeEntity(c.entity)
		if err != nil {
			return err
		}
		payload = data
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s/%s HTTP/1.1\r\n", c.kind.method(), root, c.path())
	b.WriteString("Accept: application/json\r\n")
	if payload != nil {
		b.WriteString("Content-Type: application/json\r\n")
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(payload))
	}
	b.WriteString("\r\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// batchResult is one embedded response of a $batch reply
type batchResult struct {
	status int
	body   []byte
}

// decodeBatch reads the embedded responses of a $batch reply in order.
// A failed change set comes back as a single plain response and is
// returned as an error.
func decodeBatch(contentType string, body []byte) ([]batchResult, error) {
	parts, err := readMultipart(contentType, body)
	if err != nil {
		return nil, err
	}

	var results []batchResult
	for _, p := range parts {
		mediaType, _, _ := mime.ParseMediaType(p.contentType)
		if mediaType == "multipart/mixed" {
			inner, err := readMultipart(p.contentType, p.body)
			if err != nil {
				return nil, err
			}
			for _, ip := range inner {
				r, err := readEmbeddedResponse(ip.body)
				if err != nil {
					return nil, err
				}
				results = append(results, r)
			}
			continue
		}

		r, err := readEmbeddedResponse(p.body)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

type rawPart struct {
	contentType string
	body        []byte
}

func readMultipart(contentType string, body []byte) ([]rawPart, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, fmt.Errorf("%w: unexpected batch content type %q", fulfillment.ErrRemoteInvalidResponse, contentType)
	}

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var parts []rawPart
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed batch body: %v", fulfillment.ErrRemoteInvalidResponse, err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed batch part: %v", fulfillment.ErrRemoteInvalidResponse, err)
		}
		parts = append(parts, rawPart{contentType: part.Header.Get("Content-Type"), body: data})
	}
}

func readEmbeddedResponse(data []byte) (batchResult, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return batchResult{}, fmt.Errorf("%w: malformed batch response: %v", fulfillment.ErrRemoteInvalidResponse, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return batchResult{}, fmt.Errorf("%w: malformed batch response: %v", fulfillment.ErrRemoteInvalidResponse, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return batchResult{}, fmt.Errorf("%w: HTTP %d", fulfillment.ErrRemoteAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 400:
		return batchResult{}, fmt.Errorf("%w: HTTP %d - %s", fulfillment.ErrRemoteRequestFailed, resp.StatusCode, parseErrorMessage(body))
	}
	return batchResult{status: resp.StatusCode, body: body}, nil
}
