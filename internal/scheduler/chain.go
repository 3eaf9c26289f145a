package scheduler

import (
	"strings"

	"blockstream/internal/blocks"
)

// Thresholds of trailing prose after a thought chain that mark its leading
// steps as done while the response is still streaming.
const (
	firstStepChars = 50
	earlyStepChars = 200
	maxEarlySteps  = 2
)

// progressChains advances loading thought-chain steps according to how much
// content the model has produced after each chain. The step after the last
// completed one blinks; later steps stay loading.
func progressChains(bs []blocks.Block) []blocks.Block {
	out := make([]blocks.Block, len(bs))
	copy(out, bs)

	for i, b := range bs {
		if b.Kind != blocks.KindThoughtChain {
			continue
		}
		c, ok := b.Chain()
		if !ok || len(c.Items) == 0 {
			continue
		}

		textLen := 0
		structured := false
		for _, after := range bs[i+1:] {
			switch after.Kind {
			case blocks.KindText:
				textLen += len(strings.TrimSpace(after.Text))
			case blocks.KindChart, blocks.KindTable, blocks.KindKPI, blocks.KindGantt:
				structured = true
			}
		}

		done := 0
		if textLen > firstStepChars {
			done = 1
		}
		if textLen > earlyStepChars || structured {
			done = min(len(c.Items)-1, maxEarlySteps)
		}

		items := make([]blocks.ChainItem, len(c.Items))
		for j, it := range c.Items {
			switch {
			case j < done:
				if it.Status == blocks.StatusLoading {
					it.Status = blocks.StatusSuccess
				}
				it.Blink = false
			case j == done:
				it.Status, it.Blink = blocks.StatusLoading, true
			default:
				it.Status, it.Blink = blocks.StatusLoading, false
			}
			items[j] = it
		}
		out[i] = b.WithChain(blocks.Chain{Items: items})
	}
	return out
}
