package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/spec-kit/tr4ction-console/internal/apiclient"
	"github.com/spec-kit/tr4ction-console/internal/session"
)

// API is the subset of *apiclient.Client the services call.
type API interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
	Put(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
	Delete(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
	Upload(ctx context.Context, path string, fields map[string]string, file apiclient.FilePart, out any) error
	Download(ctx context.Context, path, filename string) error
	DownloadTo(ctx context.Context, path string, w io.Writer) (int64, error)
	Session() session.Store
}

var _ API = (*apiclient.Client)(nil)

// decodeData unwraps {"status":"success","data":X} into out, or decodes the
// body as-is when it is not enveloped. An empty body leaves out untouched.
func decodeData(raw json.RawMessage, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || out == nil {
		return nil
	}

	if raw[0] == '{' {
		var env struct {
			Status string          `json:"status"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err == nil && env.Status == "success" && env.Data != nil {
			raw = env.Data
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &apiclient.Error{Kind: apiclient.KindDecode, Message: apiclient.MsgInvalidResponse, Err: err}
	}
	return nil
}

func getData(ctx context.Context, api API, path string, out any) error {
	var raw json.RawMessage
	if err := api.Get(ctx, path, &raw); err != nil {
		return err
	}
	return decodeData(raw, out)
}

func postData(ctx context.Context, api API, path string, body, out any, opts ...apiclient.CallOption) error {
	var raw json.RawMessage
	if err := api.Post(ctx, path, body, &raw, opts...); err != nil {
		return err
	}
	return decodeData(raw, out)
}

func invalid(message string) error {
	return &apiclient.Error{Kind: apiclient.KindInvalidRequest, Message: message}
}
