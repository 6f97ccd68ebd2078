package controller

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"kernel-workspace-be/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	app := newTestApp(&fakeKernel{}, fakeUpload{}, &fakeCommands{})

	resp, err := app.Test(multipartUpload(t, "file", "Solver.java", "public class Solver {}"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","filename":"Solver.java","chunks":3}`, string(body))
}

func TestUploadIndexingFailureIs422(t *testing.T) {
	failing := fakeUpload{err: &service.IndexingError{Source: "scan.pdf", Err: errors.New("unsupported document type")}}
	app := newTestApp(&fakeKernel{}, failing, &fakeCommands{})

	resp, err := app.Test(multipartUpload(t, "file", "scan.pdf", "%PDF"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"error"`)
	assert.Contains(t, string(body), "unsupported document type")
}

func TestUploadRequiresFileField(t *testing.T) {
	app := newTestApp(&fakeKernel{}, fakeUpload{}, &fakeCommands{})

	resp, err := app.Test(multipartUpload(t, "document", "a.txt", "x"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
