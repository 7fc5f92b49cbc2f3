package captioner

import "context"

const DefaultStaticCaption = "A photo uploaded for captioning"

// Static returns the same caption for every image. It backs local runs and
// tests where no provider key is available.
type Static struct {
	Text string
}

func (s Static) Caption(ctx context.Context, _ []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Text == "" {
		return DefaultStaticCaption, nil
	}
	return s.Text, nil
}
