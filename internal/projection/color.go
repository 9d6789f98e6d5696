package projection

// Bucket is one of the discrete profit color classes of the scatter.
type Bucket string

const (
	BucketHigh    Bucket = "high"
	BucketMedium  Bucket = "medium"
	BucketLow     Bucket = "low"
	BucketLowest  Bucket = "lowest"
	BucketNeutral Bucket = "neutral"
)

// Colors are chosen to stand out on the dashboard's dark background.
var bucketColors = map[Bucket]string{
	BucketHigh:    "#00ff88",
	BucketMedium:  "#ffff00",
	BucketLow:     "#ff8800",
	BucketLowest:  "#ff4444",
	BucketNeutral: "#a0aec0",
}

// Color returns the hex color for b.
func (b Bucket) Color() string {
	if c, ok := bucketColors[b]; ok {
		return c
	}
	return bucketColors[BucketNeutral]
}

// BucketFor classifies a normalized profit in [0,1].
func BucketFor(normalized float64) Bucket {
	switch {
	case normalized > 0.8:
		return BucketHigh
	case normalized > 0.6:
		return BucketMedium
	case normalized > 0.4:
		return BucketLow
	default:
		return BucketLowest
	}
}
