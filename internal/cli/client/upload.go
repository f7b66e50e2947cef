package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/medlens-dev/medlens/internal/cli/auth"
)

// UploadFieldName is the multipart field the backend reads the file from
const UploadFieldName = "image"

// File is the payload of an upload
type File struct {
	Name    string
	Content io.Reader
}

// OpenFile reads a local file into a File
func OpenFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Content: bytes.NewReader(data)}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload posts file as multipart form data under the "image" field, with the
// extra form fields alongside. The body is parsed as an envelope; a body that
// does not parse is a transport failure.
func (c *Client) Upload(ctx context.Context, role auth.Role, path string, file File, form map[string]string) (*Envelope, error) {
	fail := func(op string, err error) error {
		return &TransportError{Op: op, Method: http.MethodPost, Path: path, Err: err}
	}

	if file.Content == nil {
		return nil, fail("build", fmt.Errorf("upload file has no content"))
	}
	content, err := io.ReadAll(file.Content)
	if err != nil {
		return nil, fail("build", fmt.Errorf("failed to read upload file: %w", err))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writer.WriteField(k, form[k]); err != nil {
			return nil, fail("build", fmt.Errorf("failed to write form field %s: %w", k, err))
		}
	}

	name := file.Name
	if name == "" {
		name = UploadFieldName
	}
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadFieldName, quoteEscaper.Replace(name)))
	partHeader.Set("Content-Type", mimetype.Detect(content).String())

	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, fail("build", fmt.Errorf("failed to create file part: %w", err))
	}
	if _, err := part.Write(content); err != nil {
		return nil, fail("build", fmt.Errorf("failed to write file part: %w", err))
	}
	if err := writer.Close(); err != nil {
		return nil, fail("build", fmt.Errorf("failed to finish multipart body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, nil), &body)
	if err != nil {
		return nil, fail("build", fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	if err := c.authorizeUpload(httpReq.Header, role); err != nil {
		return nil, fail("credentials", err)
	}

	return c.send(httpReq, role, path)
}

func (c *Client) authorizeUpload(h http.Header, role auth.Role) error {
	if c.uploadHeaders == UploadHeadersCaller {
		return c.authorize(h, role)
	}

	for _, r := range auth.Roles {
		token, err := c.tokens.LoadToken(r)
		if err != nil {
			return err
		}
		h.Set(headerFor(r), token)
	}
	return nil
}
