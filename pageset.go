package mvccbt

// PageSet pairs a pinned buffer-pool frame with its latch, exactly as the
// teacher's PageFetch/NewPage/PageFree leave it for callers to unlock/unpin.
type PageSet struct {
	page  *Page
	latch *Latchs
}
