package doublebuffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrontFailsBeforeInit(t *testing.T) {
	db := New()
	_, ok := db.Front()
	require.False(t, ok)
}

func TestBackInitializesLazily(t *testing.T) {
	db := New()
	f, ok := db.Back(4, 2)
	require.True(t, ok)
	require.Equal(t, 4, f.Width)
	require.Equal(t, 2, f.Height)
	require.Len(t, f.RGBA, 4*2*4)
	db.ReleaseBack()
}

func TestSwapMakesWriteVisible(t *testing.T) {
	db := New()
	back, ok := db.Back(2, 2)
	require.True(t, ok)
	for i := range back.RGBA {
		back.RGBA[i] = 0xAA
	}
	db.ReleaseBack()

	require.True(t, db.Swap())

	front, ok := db.Front()
	require.True(t, ok)
	require.Equal(t, byte(0xAA), front.RGBA[0])
	db.ReleaseFront()
}

func TestNoTornReadUnderConcurrentAccess(t *testing.T) {
	db := New()
	back, _ := db.Back(8, 8)
	back.RGBA[0] = 1
	db.ReleaseBack()
	require.True(t, db.Swap())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if f, ok := db.Front(); ok {
					require.Equal(t, f.Width*f.Height*4, len(f.RGBA))
					db.ReleaseFront()
				}
				if b, ok := db.Back(8, 8); ok {
					require.Equal(t, 8*8*4, len(b.RGBA))
					db.ReleaseBack()
				}
			}
		}()
	}
	wg.Wait()
}
