// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadField is the multipart form field carrying the document.
const UploadField = "file"

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat sends one question and returns the assistant's answer.
func (c *Client) Chat(ctx context.Context, credential, query string) (string, error) {
	body, err := c.postJSON(ctx, "chat", c.baseURL+"/chat", credential, FallbackChat,
		chatRequest{Query: query})
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := decode("chat", body, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Upload sends a document as multipart field "file". The document is
// read fully before the request starts so a failing reader never produces
// a half-sent upload.
func (c *Client) Upload(ctx context.Context, credential, filename string, content io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, filename)
	if err != nil {
		return fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build upload: %w", err)
	}

	_, err = c.do(ctx, request{
		op:          "upload",
		method:      http.MethodPost,
		url:         c.baseURL + "/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		credential:  credential,
		fallback:    FallbackUpload,
	})
	return err
}

// DeleteUploads removes every document the caller has uploaded.
func (c *Client) DeleteUploads(ctx context.Context, credential string) error {
	_, err := c.do(ctx, request{
		op:         "delete_uploads",
		method:     http.MethodDelete,
		url:        c.baseURL + "/delete_uploads",
		credential: credential,
		fallback:   FallbackClear,
	})
	return err
}
