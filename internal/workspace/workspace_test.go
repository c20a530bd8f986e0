package workspace

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"images_to_pdf/internal/collection"
	"images_to_pdf/internal/converter"
	"images_to_pdf/internal/ingest"
)

func pngFile(t *testing.T, name string, w, h int) ingest.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return memFile(name, "image/png", buf.Bytes())
}

func memFile(name, contentType string, data []byte) ingest.File {
	return ingest.File{
		Name: name,
		Type: contentType,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func newTestWorkspace() *Workspace {
	t := converter.NewTransformer(converter.NewRasterCanvas(0), converter.DefaultFormatPolicy())
	return New(ingest.New(2), t, converter.NewAssembler(t), converter.NewDefaultOptions())
}

func names(s Snapshot) []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Name
	}
	return out
}

func idOf(t *testing.T, s Snapshot, name string) string {
	t.Helper()
	for _, r := range s.Records {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("no record named %s", name)
	return ""
}

func TestIngest_SortsAndReportsRejections(t *testing.T) {
	w := newTestWorkspace()
	res, err := w.Ingest(context.Background(), []ingest.File{
		pngFile(t, "b.png", 2, 2),
		memFile("notes.txt", "text/plain", []byte("x")),
		pngFile(t, "A.png", 2, 2),
	})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)

	snap := w.Snapshot()
	assert.Equal(t, []string{"A.png", "b.png"}, names(snap))
	require.NotNil(t, snap.Banner)
	assert.Equal(t, BannerError, snap.Banner.Kind)
	assert.Equal(t, "Unsupported file type: notes.txt. Only image files are allowed.", snap.Banner.Message)

	// A clean batch clears the old banner.
	_, err = w.Ingest(context.Background(), []ingest.File{pngFile(t, "c.png", 2, 2)})
	require.NoError(t, err)
	assert.Nil(t, w.Snapshot().Banner)
}

func TestCommands(t *testing.T) {
	w := newTestWorkspace()
	_, err := w.Ingest(context.Background(), []ingest.File{
		pngFile(t, "a.png", 2, 2), pngFile(t, "b.png", 2, 2), pngFile(t, "c.png", 2, 2),
	})
	require.NoError(t, err)
	snap := w.Snapshot()
	a, b, c := idOf(t, snap, "a.png"), idOf(t, snap, "b.png"), idOf(t, snap, "c.png")

	require.NoError(t, w.MoveAdjacent(a, collection.Right))
	assert.Equal(t, []string{"b.png", "a.png", "c.png"}, names(w.Snapshot()))

	require.NoError(t, w.MoveAdjacent(b, collection.Left), "boundary move is a no-op, not an error")
	assert.Equal(t, []string{"b.png", "a.png", "c.png"}, names(w.Snapshot()))

	require.NoError(t, w.Reposition(c, b))
	assert.Equal(t, []string{"c.png", "b.png", "a.png"}, names(w.Snapshot()))

	deg, err := w.Rotate(a)
	require.NoError(t, err)
	assert.Equal(t, 90, deg)

	require.NoError(t, w.Remove(b))
	assert.Equal(t, []string{"c.png", "a.png"}, names(w.Snapshot()))

	assert.NoError(t, w.Remove("missing"), "removing an unknown id is a no-op")
	assert.Equal(t, []string{"c.png", "a.png"}, names(w.Snapshot()))
	_, err = w.Rotate("missing")
	assert.ErrorIs(t, err, collection.ErrRecordNotFound)
	assert.ErrorIs(t, w.Reposition(a, "missing"), collection.ErrRecordNotFound)
	assert.ErrorIs(t, w.MoveAdjacent("missing", collection.Left), collection.ErrRecordNotFound)

	require.NoError(t, w.Clear())
	assert.Empty(t, w.Snapshot().Records)
}

// countingCanvas records how many bitmaps were serialized.
type countingCanvas struct {
	*converter.RasterCanvas
	mu      sync.Mutex
	encodes int
}

func (c *countingCanvas) Encode(img image.Image, mimeType string, q converter.Quality) ([]byte, error) {
	c.mu.Lock()
	c.encodes++
	c.mu.Unlock()
	return c.RasterCanvas.Encode(img, mimeType, q)
}

func (c *countingCanvas) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encodes
}

func TestRotate_DoesNotReencode(t *testing.T) {
	canvas := &countingCanvas{RasterCanvas: converter.NewRasterCanvas(0)}
	tr := converter.NewTransformer(canvas, converter.DefaultFormatPolicy())
	w := New(ingest.New(1), tr, converter.NewAssembler(tr), converter.NewDefaultOptions())

	_, err := w.Ingest(context.Background(), []ingest.File{pngFile(t, "wide.png", 400, 300)})
	require.NoError(t, err)
	rec := w.Snapshot().Records[0]

	for _, want := range []int{90, 180, 270} {
		deg, err := w.Rotate(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, want, deg)
	}
	assert.Zero(t, canvas.count(), "rotation is applied lazily")
	assert.Equal(t, rec.OriginalDataURL(), w.Snapshot().Records[0].Current)

	res, err := w.Preview(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, canvas.count())
	assert.Equal(t, 300, res.Width)
	assert.Equal(t, 400, res.Height)
	cur := w.Snapshot().Records[0].Current
	assert.True(t, strings.HasPrefix(cur, "data:image/png;base64,"))
	assert.NotEqual(t, rec.OriginalDataURL(), cur)
}

func TestSetOptions(t *testing.T) {
	w := newTestWorkspace()
	require.NoError(t, w.SetOptions(converter.Options{PageSize: "Letter", Orientation: "landscape", QualityPercent: 50}))
	opts := w.Options()
	assert.Equal(t, converter.PageLetter, opts.PageSize)
	assert.Equal(t, converter.Landscape, opts.Orientation)

	assert.Error(t, w.SetOptions(converter.Options{PageSize: "a3", Orientation: "portrait"}))
	assert.Equal(t, converter.PageLetter, w.Options().PageSize, "rejected options leave the old ones")
}

func TestConvert_EmptyCollection(t *testing.T) {
	w := newTestWorkspace()
	var buf bytes.Buffer
	err := w.Convert(context.Background(), &buf)
	assert.ErrorIs(t, err, converter.ErrEmptyCollection)
	assert.Zero(t, buf.Len())

	snap := w.Snapshot()
	require.NotNil(t, snap.Banner)
	assert.Equal(t, "Please upload at least one image to convert.", snap.Banner.Message)
	assert.Equal(t, Idle, snap.State)

	require.NoError(t, w.DismissBanner())
	assert.Nil(t, w.Snapshot().Banner)
}

func TestConvert_SuccessClearsCollection(t *testing.T) {
	w := newTestWorkspace()
	var mu sync.Mutex
	var progress []int
	w.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.State == Converting {
			progress = append(progress, s.Progress)
		}
	})

	_, err := w.Ingest(context.Background(), []ingest.File{pngFile(t, "a.png", 8, 4), pngFile(t, "b.png", 4, 8)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Convert(context.Background(), &buf))

	pages, err := converter.PageCount(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	snap := w.Snapshot()
	assert.Empty(t, snap.Records)
	assert.Equal(t, Done, snap.State)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.Banner)
	assert.Equal(t, BannerSuccess, snap.Banner.Kind)
	assert.Equal(t, "PDF converted and downloaded successfully!", snap.Banner.Message)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 50, 100}, progress)
}

func TestConvert_FailureKeepsCollection(t *testing.T) {
	w := newTestWorkspace()
	_, err := w.Ingest(context.Background(), []ingest.File{
		pngFile(t, "a.png", 2, 2),
		memFile("b.png", "image/png", []byte("not really a png")),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = w.Convert(context.Background(), &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrImageDecode)
	assert.Zero(t, buf.Len(), "no partial document is written")

	snap := w.Snapshot()
	assert.Equal(t, []string{"a.png", "b.png"}, names(snap))
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, 0, snap.Progress)
	require.NotNil(t, snap.Banner)
	assert.Equal(t, BannerError, snap.Banner.Kind)
	assert.True(t, strings.HasPrefix(snap.Banner.Message, "PDF conversion failed: "))
	assert.Contains(t, snap.Banner.Message, "b.png")
}

// blockingDoc holds the first PlaceImage until release is closed.
type blockingDoc struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *blockingDoc) PageSize() (float64, float64) { return 595.28, 841.89 }
func (d *blockingDoc) AddPage()                     {}
func (d *blockingDoc) PlaceImage(string, string, []byte, converter.Rect) error {
	d.once.Do(func() { close(d.entered) })
	<-d.release
	return nil
}
func (d *blockingDoc) Output(w io.Writer) error {
	_, err := w.Write([]byte("%PDF-fake"))
	return err
}

func TestConvert_RejectsCommandsWhileConverting(t *testing.T) {
	doc := &blockingDoc{entered: make(chan struct{}), release: make(chan struct{})}
	tr := converter.NewTransformer(converter.NewRasterCanvas(0), converter.DefaultFormatPolicy())
	a := converter.NewAssembler(tr)
	a.Verify = false
	a.NewDocument = func(converter.PageSize, converter.Orientation) converter.DocumentWriter { return doc }
	w := New(ingest.New(1), tr, a, converter.NewDefaultOptions())

	_, err := w.Ingest(context.Background(), []ingest.File{pngFile(t, "a.png", 2, 2)})
	require.NoError(t, err)
	id := w.Snapshot().Records[0].ID

	done := make(chan error, 1)
	go func() { done <- w.Convert(context.Background(), io.Discard) }()
	<-doc.entered

	assert.Equal(t, Converting, w.Snapshot().State)
	assert.True(t, IsBusy(w.Convert(context.Background(), io.Discard)))
	assert.True(t, IsBusy(w.Remove(id)))
	assert.True(t, IsBusy(w.Clear()))
	_, err = w.Rotate(id)
	assert.True(t, IsBusy(err))
	_, err = w.Ingest(context.Background(), []ingest.File{pngFile(t, "b.png", 2, 2)})
	assert.True(t, IsBusy(err))

	close(doc.release)
	require.NoError(t, <-done)
	assert.Equal(t, Done, w.Snapshot().State)
}
