package dialog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Agent311/internal/session"
)

var uploadExtensions = map[string]bool{
	".pdf":  true,
	".html": true,
}

// RefreshReports reloads the report library.
func (c *Controller) RefreshReports(ctx context.Context) error {
	files, err := c.api.ListReports(ctx)
	if err != nil {
		return err
	}
	c.update(func(s *State) {
		s.Reports = files
	})
	return nil
}

// OpenPreview shows a code string from a message in the artifact pane.
func (c *Controller) OpenPreview(code string) {
	c.update(func(s *State) {
		s.Artifact = &Artifact{Code: code}
	})
}

func (c *Controller) ClosePreview() {
	c.update(func(s *State) {
		s.Artifact = nil
	})
}

// OpenReport dispatches on the report type: PDFs are downloaded and the pane
// stays closed, PNGs open as a data:image URL, anything else opens as text.
// The returned path is the downloaded file for PDFs and "" otherwise.
func (c *Controller) OpenReport(ctx context.Context, file session.ReportFile) (string, error) {
	ref := &ReportRef{Name: file.Name, Path: file.Path}

	switch reportType(file) {
	case "pdf":
		return c.Download(ctx, *ref)
	case "png":
		f, err := c.api.FetchFile(ctx, file.Path)
		if err != nil {
			return "", err
		}
		c.update(func(s *State) {
			s.Artifact = &Artifact{Code: "data:image/png;base64," + f.Content, Report: ref}
		})
	default:
		f, err := c.api.FetchFile(ctx, file.Path)
		if err != nil {
			return "", err
		}
		c.update(func(s *State) {
			s.Artifact = &Artifact{Code: f.Content, Report: ref}
		})
	}
	return "", nil
}

func reportType(file session.ReportFile) string {
	if t := strings.ToLower(strings.TrimSpace(file.Type)); t != "" {
		return strings.TrimPrefix(t, ".")
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Name)), ".")
}

// Download saves a report into the download directory and returns its path.
func (c *Controller) Download(ctx context.Context, ref ReportRef) (string, error) {
	name := filepath.Base(ref.Name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = filepath.Base(ref.Path)
	}

	if err := os.MkdirAll(c.downloadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	dest := filepath.Join(c.downloadDir, name)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := c.api.DownloadReport(ctx, ref.Path, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write %s: %w", dest, closeErr)
	}
	if err != nil {
		os.Remove(dest)
		return "", err
	}

	c.logger.Info("report downloaded", "path", ref.Path, "dest", dest, "bytes", n)
	return dest, nil
}

// Upload sends the .pdf and .html files among paths and returns the names it
// skipped. On any success the report list is refreshed and the sidebar
// switches to files.
func (c *Controller) Upload(ctx context.Context, paths []string) ([]session.ReportFile, []string, error) {
	var accepted, skipped []string
	for _, p := range paths {
		name := filepath.Base(p)
		if name == "." || name == ".." || !uploadExtensions[strings.ToLower(filepath.Ext(name))] {
			skipped = append(skipped, p)
			continue
		}
		accepted = append(accepted, p)
	}
	if len(accepted) == 0 {
		return nil, skipped, ErrUnsupportedUpload
	}

	var uploaded []session.ReportFile
	for _, p := range accepted {
		file, err := c.uploadOne(ctx, p)
		if err != nil {
			return uploaded, skipped, err
		}
		uploaded = append(uploaded, file)
	}

	if err := c.RefreshReports(ctx); err != nil {
		c.logger.Warn("failed to refresh reports", "error", err)
	}
	c.SetSidebarMode(SidebarFiles)
	return uploaded, skipped, nil
}

func (c *Controller) uploadOne(ctx context.Context, path string) (session.ReportFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return session.ReportFile{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := c.api.UploadReport(ctx, filepath.Base(path), f)
	if err != nil {
		return session.ReportFile{}, err
	}
	c.logger.Info("report uploaded", "name", file.Name)
	return file, nil
}

// DeleteReport removes a report and closes the pane if it was showing it.
func (c *Controller) DeleteReport(ctx context.Context, file session.ReportFile) error {
	if err := c.api.DeleteReport(ctx, file.Name); err != nil {
		return err
	}

	c.update(func(s *State) {
		if s.Artifact != nil && s.Artifact.Report != nil &&
			(s.Artifact.Report.Path == file.Path || s.Artifact.Report.Name == file.Name) {
			s.Artifact = nil
		}
	})
	c.logger.Info("report deleted", "name", file.Name)

	return c.RefreshReports(ctx)
}
