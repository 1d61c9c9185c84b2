package dialog

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Agent311/internal/auth"
	"Agent311/internal/session"
)

func TestBootRequiresToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.Clear())

	assert.ErrorIs(t, h.ctrl.Boot(context.Background()), auth.ErrNotLoggedIn)
}

func TestBootCreatesSessionWhenEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Boot(ctx))

	state := h.ctrl.Snapshot()
	assert.Equal(t, "id-1", state.CurrentSessionID)
	assert.Equal(t, session.DefaultTitle, state.CurrentTitle)
	require.Len(t, state.Sessions, 1)
	assert.Empty(t, state.Messages)
}

func TestBootSelectsMostRecent(t *testing.T) {
	h := newHarness(t)
	h.backend.addSession("a", "Older")
	h.backend.addSession("b", "Newer")
	h.backend.reports = []session.ReportFile{{Name: "r.html", Path: "reports/r.html", Type: "html"}}

	require.NoError(t, h.ctrl.Boot(context.Background()))

	state := h.ctrl.Snapshot()
	assert.Equal(t, "b", state.CurrentSessionID)
	assert.Equal(t, "Newer", state.CurrentTitle)
	assert.Len(t, state.Reports, 1)
}

func TestNewChatClearsArtifactAndSwitchesToChats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Boot(ctx))

	h.ctrl.OpenPreview("<html></html>")
	h.ctrl.SetSidebarMode(SidebarFiles)
	require.NoError(t, h.ctrl.NewChat(ctx))

	state := h.ctrl.Snapshot()
	assert.Nil(t, state.Artifact)
	assert.Equal(t, SidebarChats, state.SidebarMode)
	assert.Len(t, state.Sessions, 2)
}

func TestSelectReplacesMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("a", "A")
	h.backend.sessions["a"].Messages = []session.Message{{ID: "m1", Role: session.RoleUser, Content: "hi"}}
	h.backend.addSession("b", "B")
	require.NoError(t, h.ctrl.Boot(ctx))

	h.ctrl.SetInput("draft")
	h.ctrl.OpenPreview("x")
	require.NoError(t, h.ctrl.Select(ctx, "a"))

	state := h.ctrl.Snapshot()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "hi", state.Messages[0].Content)
	assert.Empty(t, state.Input)
	assert.Nil(t, state.Artifact)
}

func TestDeleteLastSessionCreatesNew(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("only", "Only")
	require.NoError(t, h.ctrl.Boot(ctx))

	require.NoError(t, h.ctrl.Delete(ctx, "only"))

	state := h.ctrl.Snapshot()
	assert.NotEqual(t, "only", state.CurrentSessionID)
	assert.NotEmpty(t, state.CurrentSessionID)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, state.CurrentSessionID, state.Sessions[0].ID)
	assert.Empty(t, state.Messages)
}

func TestDeleteCurrentFallsBackToHead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("a", "A")
	h.backend.addSession("b", "B")
	h.backend.addSession("c", "C")
	require.NoError(t, h.ctrl.Boot(ctx))
	require.Equal(t, "c", h.ctrl.Snapshot().CurrentSessionID)

	require.NoError(t, h.ctrl.Delete(ctx, "c"))
	assert.Equal(t, "b", h.ctrl.Snapshot().CurrentSessionID)
}

func TestDeleteOtherKeepsCurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("a", "A")
	h.backend.addSession("b", "B")
	require.NoError(t, h.ctrl.Boot(ctx))

	require.NoError(t, h.ctrl.Delete(ctx, "a"))
	state := h.ctrl.Snapshot()
	assert.Equal(t, "b", state.CurrentSessionID)
	assert.Len(t, state.Sessions, 1)
}

func TestRenameCurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("a", "A")
	require.NoError(t, h.ctrl.Boot(ctx))

	require.NoError(t, h.ctrl.Rename(ctx, "a", "  Potholes  "))

	state := h.ctrl.Snapshot()
	assert.Equal(t, "Potholes", state.CurrentTitle)
	assert.Equal(t, "Potholes", state.Sessions[0].Title)
	assert.ErrorIs(t, h.ctrl.Rename(ctx, "a", "   "), ErrEmptyInput)
}

func TestRenameUpdatesTitleBeforeRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("a", "A")
	require.NoError(t, h.ctrl.Boot(ctx))

	var titles []string
	h.ctrl.OnChange(func() { titles = append(titles, h.ctrl.Snapshot().CurrentTitle) })
	require.NoError(t, h.ctrl.Rename(ctx, "a", "B"))
	require.NotEmpty(t, titles)
	assert.Equal(t, "B", titles[0])
}

func TestToggleFavoriteReorders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.addSession("a", "A")
	h.backend.addSession("b", "B")
	require.NoError(t, h.ctrl.Boot(ctx))

	require.NoError(t, h.ctrl.ToggleFavorite(ctx, "a"))
	state := h.ctrl.Snapshot()
	assert.Equal(t, "a", state.Sessions[0].ID)
	assert.True(t, state.Sessions[0].IsFavorite)
	assert.Len(t, state.Favorites(), 1)
	assert.Len(t, state.Recent(), 1)

	require.NoError(t, h.ctrl.ToggleFavorite(ctx, "a"))
	assert.Empty(t, h.ctrl.Snapshot().Favorites())
}

func TestOpenReportDispatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.backend.blobs["reports/q1.pdf"] = "%PDF-1.4"
	h.backend.files["reports/chart.png"] = fetchFixture{file: session.FetchedFile{Content: "iVBORw0K", Encoding: "base64", Language: "png"}}
	h.backend.files["reports/q1.html"] = fetchFixture{file: session.FetchedFile{Content: "<html>q1</html>", Language: "html"}}

	t.Run("pdf downloads without opening the pane", func(t *testing.T) {
		dest, err := h.ctrl.OpenReport(ctx, session.ReportFile{Name: "q1.pdf", Path: "reports/q1.pdf", Type: "pdf"})
		require.NoError(t, err)
		assert.Nil(t, h.ctrl.Snapshot().Artifact)

		raw, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(raw))
		assert.Equal(t, "q1.pdf", filepath.Base(dest))
	})

	t.Run("png opens as data url", func(t *testing.T) {
		dest, err := h.ctrl.OpenReport(ctx, session.ReportFile{Name: "chart.png", Path: "reports/chart.png", Type: "png"})
		require.NoError(t, err)
		assert.Empty(t, dest)

		artifact := h.ctrl.Snapshot().Artifact
		require.NotNil(t, artifact)
		assert.Equal(t, "data:image/png;base64,iVBORw0K", artifact.Code)
		require.NotNil(t, artifact.Report)
		assert.Equal(t, ReportRef{Name: "chart.png", Path: "reports/chart.png"}, *artifact.Report)
	})

	t.Run("html opens raw", func(t *testing.T) {
		_, err := h.ctrl.OpenReport(ctx, session.ReportFile{Name: "q1.html", Path: "reports/q1.html"})
		require.NoError(t, err)
		assert.Equal(t, "<html>q1</html>", h.ctrl.Snapshot().Artifact.Code)
	})
}

func TestDropUploadsOnlySupportedFiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Boot(ctx))

	dir := t.TempDir()
	pdf := filepath.Join(dir, "foo.pdf")
	png := filepath.Join(dir, "bar.png")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0644))
	require.NoError(t, os.WriteFile(png, []byte("png"), 0644))

	zone := h.ctrl.DropZone()
	zone.Enter()
	zone.Enter()
	zone.Leave()
	assert.True(t, zone.Active())

	uploaded, skipped, err := h.ctrl.Drop(ctx, []string{pdf, png})
	require.NoError(t, err)

	assert.False(t, zone.Active())
	require.Len(t, uploaded, 1)
	assert.Equal(t, "foo.pdf", uploaded[0].Name)
	assert.Equal(t, []string{png}, skipped)
	assert.Equal(t, []string{"foo.pdf"}, h.backend.uploads)

	state := h.ctrl.Snapshot()
	assert.Equal(t, SidebarFiles, state.SidebarMode)
	assert.Len(t, state.Reports, 1)
}

func TestDropHoldsZoneUntilUploadFinishes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Boot(ctx))

	pdf := filepath.Join(t.TempDir(), "q2.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0644))

	zone := h.ctrl.DropZone()
	var seen []bool
	h.ctrl.OnChange(func() { seen = append(seen, zone.Active()) })

	zone.Enter()
	require.Equal(t, []bool{true}, seen)

	_, _, err := h.ctrl.Drop(ctx, []string{pdf})
	require.NoError(t, err)

	// upload state changes are published with the overlay still up, then
	// the reset is published on its own
	require.Greater(t, len(seen), 2)
	for _, active := range seen[:len(seen)-1] {
		assert.True(t, active)
	}
	assert.False(t, seen[len(seen)-1])
	assert.False(t, zone.Active())
}

func TestUploadNothingSupported(t *testing.T) {
	h := newHarness(t)
	_, skipped, err := h.ctrl.Upload(context.Background(), []string{"/tmp/a.csv", "/tmp/.."})
	assert.ErrorIs(t, err, ErrUnsupportedUpload)
	assert.Len(t, skipped, 2)
	assert.Empty(t, h.backend.uploads)
}

func TestDeleteDisplayedReportClosesPane(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	report := session.ReportFile{Name: "q1.html", Path: "reports/q1.html", Type: "html"}
	h.backend.reports = []session.ReportFile{report}
	h.backend.files[report.Path] = fetchFixture{file: session.FetchedFile{Content: "<html/>"}}

	_, err := h.ctrl.OpenReport(ctx, report)
	require.NoError(t, err)
	require.NotNil(t, h.ctrl.Snapshot().Artifact)

	require.NoError(t, h.ctrl.DeleteReport(ctx, report))
	state := h.ctrl.Snapshot()
	assert.Nil(t, state.Artifact)
	assert.Empty(t, state.Reports)
	assert.Equal(t, []string{"q1.html"}, h.backend.deletedReports)
}

func TestDeleteOtherReportKeepsPane(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ctrl.OpenPreview("<html/>")

	require.NoError(t, h.ctrl.DeleteReport(ctx, session.ReportFile{Name: "other.pdf", Path: "reports/other.pdf"}))
	assert.NotNil(t, h.ctrl.Snapshot().Artifact)
}

func TestUnauthorizedChatRedirectsOnce(t *testing.T) {
	h := newHarness(t)
	h.backend.chatStatus = http.StatusUnauthorized
	require.NoError(t, h.ctrl.Boot(context.Background()))

	err := h.ctrl.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Equal(t, 1, h.logins)
	assert.False(t, h.tokens.LoggedIn())

	state := h.ctrl.Snapshot()
	assert.False(t, state.IsStreaming)
	assert.Empty(t, state.Messages[len(state.Messages)-1].Content)
}

func TestResizeClamps(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ResizeSidebar(100)
	assert.Equal(t, MinSidebarWidth, h.ctrl.Snapshot().SidebarWidth)
	h.ctrl.ResizeSidebar(1000)
	assert.Equal(t, MaxSidebarWidth, h.ctrl.Snapshot().SidebarWidth)
	h.ctrl.ResizeSidebar(300)
	assert.Equal(t, 300, h.ctrl.Snapshot().SidebarWidth)

	h.ctrl.ResizePane(5)
	assert.Equal(t, MinPanePct, h.ctrl.Snapshot().PanePct)
	h.ctrl.ResizePane(95)
	assert.Equal(t, MaxPanePct, h.ctrl.Snapshot().PanePct)

	h.ctrl.ToggleSidebar()
	assert.False(t, h.ctrl.Snapshot().SidebarOpen)
}
