package removal

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemover struct {
	img   image.Image
	err   error
	calls int
}

func (f *fakeRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func testPhoto() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 4, 4))
}

func TestRemoveDispatchesToRemote(t *testing.T) {
	remote := &fakeRemover{img: testPhoto()}
	local := &fakeRemover{img: testPhoto()}
	p := NewPipeline(remote, local)

	result, err := p.Remove(context.Background(), testPhoto(), Options{Method: MethodRemoteAPI})
	require.NoError(t, err)
	assert.Equal(t, MethodRemoteAPI, result.Method)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 0, local.calls)
}

func TestRemoveDispatchesToLocal(t *testing.T) {
	remote := &fakeRemover{img: testPhoto()}
	local := &fakeRemover{img: testPhoto()}
	p := NewPipeline(remote, local)

	result, err := p.Remove(context.Background(), testPhoto(), Options{Method: MethodLocalModel})
	require.NoError(t, err)
	assert.Equal(t, MethodLocalModel, result.Method)
	assert.Equal(t, 0, remote.calls)
	assert.Equal(t, 1, local.calls)
}

func TestRemoveFallsBackToLocalOnce(t *testing.T) {
	remote := &fakeRemover{err: errors.New("api unreachable")}
	local := &fakeRemover{img: testPhoto()}
	p := NewPipeline(remote, local)

	result, err := p.Remove(context.Background(), testPhoto(), Options{
		Method:               MethodRemoteAPI,
		FallbackToLocalModel: true,
	})
	require.NoError(t, err)
	// the result reports the method that actually produced the cut-out
	assert.Equal(t, MethodLocalModel, result.Method)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, local.calls)
}

func TestRemoveSurfacesOriginalErrorWhenFallbackFails(t *testing.T) {
	remote := &fakeRemover{err: errors.New("api unreachable")}
	local := &fakeRemover{err: ErrModelUnavailable}
	p := NewPipeline(remote, local)

	_, err := p.Remove(context.Background(), testPhoto(), Options{
		Method:               MethodRemoteAPI,
		FallbackToLocalModel: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackgroundRemoval)
	// the error names the requested method and original failure, not the fallback's
	assert.Contains(t, err.Error(), "remote_api")
	assert.Contains(t, err.Error(), "api unreachable")
}

func TestRemoveNoFallbackWhenDisabled(t *testing.T) {
	remote := &fakeRemover{err: errors.New("api unreachable")}
	local := &fakeRemover{img: testPhoto()}
	p := NewPipeline(remote, local)

	_, err := p.Remove(context.Background(), testPhoto(), Options{Method: MethodRemoteAPI})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackgroundRemoval)
	assert.Equal(t, 0, local.calls)
}

func TestRemoveLocalFailureNeverRetriesLocally(t *testing.T) {
	remote := &fakeRemover{img: testPhoto()}
	local := &fakeRemover{err: ErrModelUnavailable}
	p := NewPipeline(remote, local)

	_, err := p.Remove(context.Background(), testPhoto(), Options{
		Method:               MethodLocalModel,
		FallbackToLocalModel: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackgroundRemoval)
	assert.Equal(t, 1, local.calls, "fallback must not re-run the method that just failed")
	assert.Equal(t, 0, remote.calls)
}

func TestRemoveManualNotImplemented(t *testing.T) {
	p := NewPipeline(&fakeRemover{}, &fakeRemover{})

	_, err := p.Remove(context.Background(), testPhoto(), Options{Method: MethodManual})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackgroundRemoval)
	assert.Contains(t, err.Error(), ErrNotImplemented.Error())
}

func TestParseMethodRoundTrip(t *testing.T) {
	for _, m := range []Method{MethodRemoteAPI, MethodLocalModel, MethodManual} {
		parsed, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMethod("telepathy")
	assert.Error(t, err)
}
