package ai

import (
	"context"

	"github.com/valyala/fastrand"
)

var cannedReplies = []string{
	"haha yeah maybe",
	"idk, what do you think?",
	"lol fair",
	"wait really?",
	"hm, hadn't thought about it like that",
	"sure sure. anyway what are you up to",
	"honestly same",
	"that's a take",
	"ok but hear me out",
	"been a long day tbh",
}

// Canned is the fallback provider used when no API key is configured.
// Replies are generic filler, which is sometimes convincing enough.
type Canned struct{}

var _ Provider = Canned{}

func (Canned) Complete(_ context.Context, _ string, _ string) (string, error) {
	return cannedReplies[fastrand.Uint32n(uint32(len(cannedReplies)))], nil
}

func (c Canned) CompleteWithSystem(ctx context.Context, model, _, prompt string) (string, error) {
	return c.Complete(ctx, model, prompt)
}
