package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FilePart is the file half of a multipart upload.
type FilePart struct {
	FieldName string
	Filename  string
	Content   io.Reader
}

// DownloadTo streams GET path into w. Downloads are never retried and the
// body is not parsed.
func (c *Client) DownloadTo(ctx context.Context, path string, w io.Writer) (int64, error) {
	attemptCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, requestID, apiErr := c.send(ctx, attemptCtx, http.MethodGet, path, nil, "")
	if apiErr != nil {
		c.logAttempt(http.MethodGet, path, 1, apiErr.Status, requestID, time.Since(start))
		c.metrics.RecordError(path, http.MethodGet, string(apiErr.Kind))
		return 0, apiErr
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	c.logAttempt(http.MethodGet, path, 1, resp.StatusCode, requestID, time.Since(start))
	if err != nil {
		apiErr := fromTransport(ctx, err, requestID)
		c.metrics.RecordError(path, http.MethodGet, string(apiErr.Kind))
		return n, apiErr
	}
	return n, nil
}

// Download saves GET path as filename. The file appears only once the
// whole body has arrived; a failed download leaves nothing behind.
func (c *Client) Download(ctx context.Context, path, filename string) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.part")
	if err != nil {
		return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf("não foi possível criar %s", filename), Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := c.DownloadTo(ctx, path, tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf("não foi possível salvar %s", filename), Err: err}
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf("não foi possível salvar %s", filename), Err: err}
	}
	committed = true
	return nil
}

// Upload posts a multipart/form-data body with the given text fields and
// one file, decoding the JSON answer into out. Uploads are not retried.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, file FilePart, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fieldName := file.FieldName
	if fieldName == "" {
		fieldName = "file"
	}
	part, err := mw.CreateFormFile(fieldName, file.Filename)
	if err != nil {
		return &Error{Kind: KindInvalidRequest, Message: "arquivo inválido", Err: err}
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return &Error{Kind: KindInvalidRequest, Message: "não foi possível ler o arquivo", Err: err}
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return &Error{Kind: KindInvalidRequest, Message: "formulário inválido", Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return &Error{Kind: KindInvalidRequest, Message: "formulário inválido", Err: err}
	}

	attemptCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, requestID, apiErr := c.send(ctx, attemptCtx, http.MethodPost, path, &buf, mw.FormDataContentType())
	if apiErr != nil {
		c.logAttempt(http.MethodPost, path, 1, apiErr.Status, requestID, time.Since(start))
		c.metrics.RecordError(path, http.MethodPost, string(apiErr.Kind))
		return apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fromTransport(ctx, err, requestID)
	}
	c.logAttempt(http.MethodPost, path, 1, resp.StatusCode, requestID, time.Since(start))
	return decodeInto(resp.StatusCode, data, out)
}
