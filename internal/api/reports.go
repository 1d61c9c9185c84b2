package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"Agent311/internal/session"
)

type reportList struct {
	Files []session.ReportFile `json:"files"`
}

// ListReports returns the report library newest first.
func (c *Client) ListReports(ctx context.Context) ([]session.ReportFile, error) {
	var list reportList
	if err := c.doJSON(ctx, "list_reports", http.MethodGet, "/api/reports", nil, &list); err != nil {
		return nil, err
	}
	session.SortReports(list.Files)
	return list.Files, nil
}

// FetchFile returns the previewable body of path. Binary files carry base64 content.
func (c *Client) FetchFile(ctx context.Context, path string) (session.FetchedFile, error) {
	var f session.FetchedFile
	err := c.doJSON(ctx, "fetch_file", http.MethodGet, "/api/fetch_file?path="+escapeComponent(path), nil, &f)
	return f, err
}

// DownloadReport copies the raw report blob for path into w.
func (c *Client) DownloadReport(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, "download_report", http.MethodGet, "/api/reports/download?path="+escapeComponent(path), nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: "download_report", Err: err}
	}
	return n, nil
}

// UploadReport sends r as the single multipart field "file" named name.
func (c *Client) UploadReport(ctx context.Context, name string, r io.Reader) (session.ReportFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return session.ReportFile{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return session.ReportFile{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return session.ReportFile{}, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	resp, err := c.send(ctx, "upload_report", http.MethodPost, "/api/reports/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return session.ReportFile{}, err
	}
	defer resp.Body.Close()

	var file session.ReportFile
	if err := decodeOptional(resp.Body, &file); err != nil {
		return session.ReportFile{}, fmt.Errorf("failed to unmarshal upload_report response: %w", err)
	}
	if file.Name == "" {
		file.Name = name
	}
	return file, nil
}

func (c *Client) DeleteReport(ctx context.Context, name string) error {
	return c.doJSON(ctx, "delete_report", http.MethodDelete, "/api/reports/"+url.PathEscape(name), nil, nil)
}
