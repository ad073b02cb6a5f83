package gallery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListAll(ctx context.Context) ([]domain.Enrollment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Enrollment), args.Error(1)
}

type MockImages struct {
	mock.Mock
}

func (m *MockImages) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.DetectedFace), args.Error(1)
}

func TestLoader_Build(t *testing.T) {
	source := new(MockSource)
	images := new(MockImages)
	extractor := new(MockExtractor)

	source.On("ListAll", mock.Anything).Return([]domain.Enrollment{
		{IdentityID: "1", DisplayName: "Ana", Embedding: []float32{0, 0}},
		{IdentityID: "2", DisplayName: "Bruno", ImageKey: "2.jpg"},
		{IdentityID: "3", DisplayName: "Carla", ImageKey: "3.jpg"},
		{IdentityID: "4", DisplayName: "Davi", ImageKey: "4.jpg"},
		{IdentityID: "5", DisplayName: "Eva"},
	}, nil)

	images.On("Get", mock.Anything, "2.jpg").Return([]byte("bruno"), nil)
	images.On("Get", mock.Anything, "3.jpg").Return([]byte("carla"), nil)
	images.On("Get", mock.Anything, "4.jpg").Return(nil, errors.New("not found"))

	extractor.On("Extract", mock.Anything, []byte("bruno")).
		Return([]provider.DetectedFace{{Embedding: []float32{1, 1}}}, nil)
	extractor.On("Extract", mock.Anything, []byte("carla")).
		Return([]provider.DetectedFace{}, nil)

	g, err := NewLoader(source, images, extractor, nil).WithConcurrency(2).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, g.Len())
	assert.Equal(t, "1", g.All()[0].IdentityID)
	assert.Equal(t, "2", g.All()[1].IdentityID)
	assert.Equal(t, []float32{1, 1}, g.All()[1].Embedding)

	source.AssertExpectations(t)
	images.AssertExpectations(t)
	extractor.AssertExpectations(t)
}

func TestLoader_Build_SourceError(t *testing.T) {
	source := new(MockSource)
	source.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewLoader(source, nil, nil, nil).Build(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list enrollments")
}

func TestLoader_Build_WithoutExtractorSkipsMissingEmbeddings(t *testing.T) {
	source := new(MockSource)
	source.On("ListAll", mock.Anything).Return([]domain.Enrollment{
		{IdentityID: "1", Embedding: []float32{0, 0}},
		{IdentityID: "2", ImageKey: "2.jpg"},
	}, nil)

	g, err := NewLoader(source, nil, nil, nil).Build(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}

func TestLoader_Build_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := new(MockSource)
	images := new(MockImages)
	extractor := new(MockExtractor)

	source.On("ListAll", mock.Anything).Return([]domain.Enrollment{
		{IdentityID: "1", ImageKey: "1.jpg"},
	}, nil)
	images.On("Get", mock.Anything, "1.jpg").Return(nil, context.Canceled)

	_, err := NewLoader(source, images, extractor, nil).Build(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_Reload(t *testing.T) {
	source := new(MockSource)
	source.On("ListAll", mock.Anything).Return([]domain.Enrollment{
		{IdentityID: "1", Embedding: []float32{0, 0}},
	}, nil)

	h := NewHolder(nil)
	g, err := NewLoader(source, nil, nil, nil).Reload(context.Background(), h)

	require.NoError(t, err)
	assert.Same(t, g, h.Snapshot())
	assert.Equal(t, 1, h.Snapshot().Len())
}

func TestLoader_Reload_KeepsPreviousOnError(t *testing.T) {
	source := new(MockSource)
	source.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))

	prev := Load([]domain.Enrollment{{IdentityID: "1", Embedding: []float32{0}}})
	h := NewHolder(prev)

	_, err := NewLoader(source, nil, nil, nil).Reload(context.Background(), h)

	require.Error(t, err)
	assert.Same(t, prev, h.Snapshot())
}

// pausingSource holds its first ListAll until release is closed, returning
// the rows it saw on entry.
type pausingSource struct {
	mu      sync.Mutex
	rows    []domain.Enrollment
	calls   int32
	entered chan struct{}
	release chan struct{}
}

func (s *pausingSource) set(rows ...domain.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
}

func (s *pausingSource) ListAll(ctx context.Context) ([]domain.Enrollment, error) {
	s.mu.Lock()
	rows := append([]domain.Enrollment(nil), s.rows...)
	s.mu.Unlock()

	if atomic.AddInt32(&s.calls, 1) == 1 {
		close(s.entered)
		<-s.release
	}
	return rows, nil
}

func TestLoader_Reload_OverlappingReloadsKeepNewest(t *testing.T) {
	alice := domain.Enrollment{IdentityID: "alice", Embedding: []float32{0, 0}}
	bob := domain.Enrollment{IdentityID: "bob", Embedding: []float32{1, 1}}

	source := &pausingSource{entered: make(chan struct{}), release: make(chan struct{})}
	source.set(alice)

	h := NewHolder(nil)
	loader := NewLoader(source, nil, nil, nil)

	first := make(chan error, 1)
	go func() {
		_, err := loader.Reload(context.Background(), h)
		first <- err
	}()
	<-source.entered

	// bob is enrolled while the first reload still holds its stale read
	source.set(alice, bob)
	second := make(chan error, 1)
	go func() {
		_, err := loader.Reload(context.Background(), h)
		second <- err
	}()

	select {
	case <-second:
		t.Fatal("second reload finished while the first was still building")
	case <-time.After(50 * time.Millisecond):
	}

	close(source.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.Equal(t, 2, h.Snapshot().Len())
	_, ok := h.Snapshot().Lookup("bob")
	assert.True(t, ok, "bob must stay matchable after both reloads")
}
