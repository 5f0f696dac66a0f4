package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/grading"
	"github.com/codebuildervaibhav/lecture-grader/internal/storage"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
}

func multipartRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func typedMultipartRequest(t *testing.T, path, filename, contentType, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	fw, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, path string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type fakeStore struct {
	err   error
	names []string
}

func (f *fakeStore) Store(_ context.Context, data []byte, name string) (*types.UploadedAsset, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.names = append(f.names, name)
	key := storage.NewObjectKey(name)
	return &types.UploadedAsset{StorageKey: key, PublicURL: "https://lectures.s3.eu-central-1.amazonaws.com/" + key}, nil
}

func (f *fakeStore) Backend() string { return "s3" }

func TestUploadHandler(t *testing.T) {
	store := &fakeStore{}
	app := newTestApp()
	app.Post("/upload/", NewUploadHandler(store, nil, 10, testLogger()).Handle)

	resp, err := app.Test(multipartRequest(t, "/upload/", "slides.pdf", "%PDF"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "Successful", body["status"])
	assert.True(t, strings.HasSuffix(body["storage_key"].(string), "_slides.pdf"))
	assert.Equal(t, "https://lectures.s3.eu-central-1.amazonaws.com/"+body["storage_key"].(string), body["public_url"])
}

func TestUploadHandlerErrors(t *testing.T) {
	app := newTestApp()
	store := &fakeStore{err: apperr.New(apperr.KindStorageUnavailable, "s3 put object", errors.New("InvalidAccessKeyId"))}
	app.Post("/upload/", NewUploadHandler(store, nil, 10, testLogger()).Handle)

	resp, err := app.Test(multipartRequest(t, "/upload/", "a.txt", "x"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "ERR_STORAGE_UNAVAILABLE", decode(t, resp)["code"])

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/upload/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NO_FILE", decode(t, resp)["code"])
}

type fakeIndex struct {
	ingested []types.LectureDocument
	result   types.RetrievalResult
	err      error
}

func (f *fakeIndex) Ingest(_ context.Context, docs []types.LectureDocument) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ingested = append(f.ingested, docs...)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		if ids[i] == "" {
			ids[i] = "generated"
		}
	}
	return ids, nil
}

func (f *fakeIndex) Retrieve(context.Context, string, int) (types.RetrievalResult, error) {
	return f.result, f.err
}

type fakeImporter struct{}

func (fakeImporter) Fetch(_ context.Context, pageURL, title string) (types.LectureDocument, error) {
	if title == "" {
		title = "Rendered"
	}
	return types.LectureDocument{Title: title, Content: "content of " + pageURL}, nil
}

func TestLectureInsertAndRetrieve(t *testing.T) {
	idx := &fakeIndex{result: types.RetrievalResult{Documents: []string{"Newton's laws"}, Found: true}}
	h := NewLectureHandler(idx, fakeImporter{}, testLogger())
	app := newTestApp()
	app.Post("/insert_lecture/", h.Insert)
	app.Post("/insert_lecture/url", h.InsertURL)
	app.Post("/retrieve/", h.Retrieve)

	resp, err := app.Test(jsonRequest(t, "/insert_lecture/", map[string]any{
		"lecture_materials": []map[string]string{
			{"id": "0", "title": "Physics Lecture", "content": "Newton"},
			{"title": "Math Lecture", "content": "Integrals"},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decode(t, resp)["inserted"])
	require.Len(t, idx.ingested, 2)
	assert.Equal(t, "Math Lecture", idx.ingested[1].Title)

	resp, err = app.Test(jsonRequest(t, "/insert_lecture/url", map[string]string{"url": "https://uni.example/l1"}))
	require.NoError(t, err)
	assert.Equal(t, "Rendered", decode(t, resp)["title"])
	assert.Equal(t, "content of https://uni.example/l1", idx.ingested[2].Content)

	resp, err = app.Test(jsonRequest(t, "/retrieve/", map[string]string{"prompt": "Newton"}))
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, []any{"Newton's laws"}, body["documents"])
}

func TestLectureValidation(t *testing.T) {
	h := NewLectureHandler(&fakeIndex{}, fakeImporter{}, testLogger())
	app := newTestApp()
	app.Post("/insert_lecture/", h.Insert)
	app.Post("/retrieve/", h.Retrieve)

	resp, err := app.Test(jsonRequest(t, "/insert_lecture/", map[string]any{"lecture_materials": []any{}}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "/retrieve/", map[string]string{"prompt": " "}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NO_PROMPT", decode(t, resp)["code"])
}

func TestRetrieveUpstreamFailure(t *testing.T) {
	idx := &fakeIndex{err: apperr.New(apperr.KindUpstream, "pgvector query", errors.New("connection refused"))}
	app := newTestApp()
	app.Post("/retrieve/", NewLectureHandler(idx, fakeImporter{}, testLogger()).Retrieve)

	resp, err := app.Test(jsonRequest(t, "/retrieve/", map[string]string{"prompt": "Newton"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "ERR_UPSTREAM", decode(t, resp)["code"])
}

type fakeEvaluator struct {
	docs []string
	err  error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, docs []string, _, pupilText string) (string, error) {
	f.docs = docs
	return "Feedback on " + pupilText, f.err
}

func (f *fakeEvaluator) Score(context.Context, string, string) (string, error) {
	return "7", f.err
}

func TestLLMEndpoints(t *testing.T) {
	idx := &fakeIndex{result: types.RetrievalResult{Documents: []string{"doc"}, Found: true}}
	ev := &fakeEvaluator{}
	h := NewLLMHandler(idx, ev, testLogger())
	app := newTestApp()
	app.Post("/llm/evaluate/", h.Evaluate)
	app.Post("/llm/score/", h.Score)

	resp, err := app.Test(jsonRequest(t, "/llm/evaluate/", LLMRequest{Prompt: "Physics", PupilText: "F=ma"}))
	require.NoError(t, err)
	assert.Equal(t, "Feedback on F=ma", decode(t, resp)["text"])
	assert.Equal(t, []string{"doc"}, ev.docs)

	resp, err = app.Test(jsonRequest(t, "/llm/score/", LLMRequest{Prompt: "Physics", PupilText: "F=ma"}))
	require.NoError(t, err)
	assert.Equal(t, "7", decode(t, resp)["text"])

	resp, err = app.Test(jsonRequest(t, "/llm/score/", LLMRequest{Prompt: "Physics"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_INVALID_INPUT", decode(t, resp)["code"])
}

func TestLLMCompletionFailure(t *testing.T) {
	ev := &fakeEvaluator{err: apperr.New(apperr.KindCompletion, "chat completion", errors.New("429"))}
	app := newTestApp()
	app.Post("/llm/score/", NewLLMHandler(&fakeIndex{}, ev, testLogger()).Score)

	resp, err := app.Test(jsonRequest(t, "/llm/score/", LLMRequest{Prompt: "Physics", PupilText: "x"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "ERR_COMPLETION_SERVICE", decode(t, resp)["code"])
}

func newVideoDeps(t *testing.T) (*storage.VideoStore, *storage.MetadataDB) {
	t.Helper()
	dir := t.TempDir()
	videos, err := storage.NewVideoStore(filepath.Join(dir, "videos"))
	require.NoError(t, err)
	db, err := storage.NewMetadataDB(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return videos, db
}

func TestVideoUploadIsContentAddressed(t *testing.T) {
	videos, db := newVideoDeps(t)
	h := NewVideoHandler(videos, db, 10, testLogger())
	app := newTestApp()
	app.Post("/llm/upload-video/", h.Upload)
	app.Get("/videos", h.List)

	resp, err := app.Test(multipartRequest(t, "/llm/upload-video/", "lesson.mp4", "frames"))
	require.NoError(t, err)
	first := decode(t, resp)

	resp, err = app.Test(multipartRequest(t, "/llm/upload-video/", "renamed.mp4", "frames"))
	require.NoError(t, err)
	second := decode(t, resp)

	assert.Equal(t, first["video_file"], second["video_file"])
	assert.Equal(t, first["video_file"], first["message"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/videos", nil))
	require.NoError(t, err)
	var listed []types.StoredVideo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "lesson.mp4", listed[0].OriginalName)
}

func TestVideoUploadRejectsUnsupportedFormat(t *testing.T) {
	videos, db := newVideoDeps(t)
	app := newTestApp()
	app.Post("/llm/upload-video/", NewVideoHandler(videos, db, 10, testLogger()).Upload)

	resp, err := app.Test(multipartRequest(t, "/llm/upload-video/", "notes.docx", "x"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_INVALID_FORMAT", decode(t, resp)["code"])
}

func TestVideoUploadAcceptsRecordedBlob(t *testing.T) {
	videos, db := newVideoDeps(t)
	app := newTestApp()
	app.Post("/llm/upload-video/", NewVideoHandler(videos, db, 10, testLogger()).Upload)

	resp, err := app.Test(typedMultipartRequest(t, "/llm/upload-video/", "blob", "video/webm", "\x1a\x45\xdf\xa3webm"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	key, _ := decode(t, resp)["video_file"].(string)
	assert.True(t, strings.HasSuffix(key, ".webm"), key)

	path, err := videos.Resolve(key)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestVideoUploadAcceptsUntypedBlob(t *testing.T) {
	videos, db := newVideoDeps(t)
	app := newTestApp()
	app.Post("/llm/upload-video/", NewVideoHandler(videos, db, 10, testLogger()).Upload)

	resp, err := app.Test(multipartRequest(t, "/llm/upload-video/", "blob", "frames"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	key, _ := decode(t, resp)["video_file"].(string)
	_, err = videos.Resolve(key)
	assert.NoError(t, err)
}

type fakeGrader struct {
	rows    []types.GradeRow
	err     error
	gotPath string
}

func (f *fakeGrader) Grade(_ context.Context, path, _ string, _ grading.ProgressFunc) ([]types.GradeRow, error) {
	f.gotPath = path
	return f.rows, f.err
}

func TestDownloadCSV(t *testing.T) {
	videos, db := newVideoDeps(t)
	video, err := videos.Save(strings.NewReader("frames"), "lesson.mp4", types.SourceUpload)
	require.NoError(t, err)

	grader := &fakeGrader{rows: []types.GradeRow{
		{SpeakerID: "SPEAKER_00", Score: "8", Comment: "Good"},
		{SpeakerID: "SPEAKER_01", Score: "6", Comment: "Missed, inertia"},
		{SpeakerID: "SPEAKER_00", Score: "9", Comment: "Great"},
	}}
	h := NewGradingHandler(videos, grader, db, testLogger())
	app := newTestApp()
	app.Post("/llm/download-csv/", h.DownloadCSV)
	app.Get("/runs", h.Runs)

	resp, err := app.Test(jsonRequest(t, "/llm/download-csv/", DownloadCSVRequest{VideoFile: video.Key, Prompt: "Physics"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="table.csv"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Speaker,Mark,Comment(Feedback)", lines[0])
	assert.Equal(t, `SPEAKER_01,6,"Missed, inertia"`, lines[2])

	path, err := videos.Resolve(video.Key)
	require.NoError(t, err)
	assert.Equal(t, path, grader.gotPath)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.NoError(t, err)
	var runs []types.GradingRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, types.StatusSuccessful, runs[0].Status)
	assert.Equal(t, 3, runs[0].Rows)
}

func TestDownloadCSVFailureReturnsNoPartialCSV(t *testing.T) {
	videos, db := newVideoDeps(t)
	video, err := videos.Save(strings.NewReader("frames"), "lesson.mp4", types.SourceUpload)
	require.NoError(t, err)

	grader := &fakeGrader{err: apperr.New(apperr.KindCompletion, "chat completion", errors.New("502"))}
	app := newTestApp()
	app.Post("/llm/download-csv/", NewGradingHandler(videos, grader, db, testLogger()).DownloadCSV)

	resp, err := app.Test(jsonRequest(t, "/llm/download-csv/", DownloadCSVRequest{VideoFile: video.Key, Prompt: "Physics"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.NotEqual(t, "text/csv", resp.Header.Get("Content-Type"))

	runs, err := db.ListGradingRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.StatusFailed, runs[0].Status)
}

func TestDownloadCSVUnknownVideo(t *testing.T) {
	videos, db := newVideoDeps(t)
	app := newTestApp()
	app.Post("/llm/download-csv/", NewGradingHandler(videos, &fakeGrader{}, db, testLogger()).DownloadCSV)

	resp, err := app.Test(jsonRequest(t, "/llm/download-csv/", DownloadCSVRequest{VideoFile: "../secret.mp4", Prompt: "Physics"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "/llm/download-csv/", DownloadCSVRequest{VideoFile: strings.Repeat("b", 64) + ".mp4", Prompt: "Physics"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ERR_NOT_FOUND", decode(t, resp)["code"])
}

type staticLogs []string

func (s staticLogs) GetLogs() []string { return s }

func TestSystemRoutes(t *testing.T) {
	app := newTestApp()
	app.Get("/", Hello)
	app.Get("/health", Health(map[string]error{"diarizer": errors.New("no token")}))
	app.Get("/logs", Logs(staticLogs{"line 1"}))
	app.Get("/ws", RequireUpgrade, func(c *fiber.Ctx) error { return nil })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", decode(t, resp)["message"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, []any{"diarizer"}, body["unavailable"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, []any{"line 1"}, decode(t, resp)["logs"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
