package brief

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mpawlak/ksewatch/internal/risk"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const systemPrompt = `You are an energy-markets analyst for a Polish PV and wind portfolio operator. You write the daily morning brief on redispatch risk in the national power system (KSE), working from a scored 7-day risk heatmap. Write in Polish. At most three short paragraphs: current situation, the riskiest windows in the coming days, and recommended operator actions. Be concrete about days and hours. No greeting, no sign-off.`

// Generator writes the daily operator brief using OpenAI's API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a new brief generator.
// It reads the OPENAI_API_KEY environment variable for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Model returns the model name briefs are attributed to in storage.
func (g *Generator) Model() string {
	return g.model
}

// Generate produces the morning brief for the given heatmap.
func (g *Generator) Generate(ctx context.Context, hm *risk.Heatmap) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(summarizeHeatmap(hm)),
		},
		Model: g.model,
	})
	if err != nil {
		return "", fmt.Errorf("brief generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty completion returned")
	}
	return content, nil
}

// summarizeHeatmap flattens the scored grid into the compact text block the
// model works from: one line per day plus the peak cell and data caveats.
func summarizeHeatmap(hm *risk.Heatmap) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Risk heatmap generated %s, day 0 = %s.\n",
		hm.GeneratedAt.Format("2006-01-02 15:04"), hm.DayLabels[0])

	cur := hm.CurrentCell()
	fmt.Fprintf(&b, "Current hour %02d:00: score %d (%s).\n",
		cur.Hour, cur.Score.TotalScore, cur.Score.RiskLevel)

	peak := hm.MaxCell()
	fmt.Fprintf(&b, "Peak of the week: %s %02d:00, score %d (%s).",
		hm.DayLabels[peak.DayOffset], peak.Hour, peak.Score.TotalScore, peak.Score.RiskLevel)
	for i, f := range peak.Score.Factors {
		if f.Info || i >= 3 {
			break
		}
		fmt.Fprintf(&b, " %s +%d.", f.Label, f.Impact)
	}
	b.WriteString("\n\nPer day (worst hour, cells at high/critical):\n")

	for d := 0; d < risk.GridDays; d++ {
		worst := &hm.Cells[d][0]
		for h := 1; h < risk.GridHours; h++ {
			if hm.Cells[d][h].Score.TotalScore > worst.Score.TotalScore {
				worst = &hm.Cells[d][h]
			}
		}
		counts := hm.LevelCounts(d)
		fmt.Fprintf(&b, "- %s: max %d at %02d:00 (%s), %d high, %d critical\n",
			hm.DayLabels[d], worst.Score.TotalScore, worst.Hour, worst.Score.RiskLevel,
			counts[risk.LevelHigh], counts[risk.LevelCritical])
	}

	if hm.ReserveMisaligned {
		b.WriteString("\nReserve plan was misaligned with the grid window and has been discarded; scores are partial.\n")
	} else if cur.Degraded {
		b.WriteString("\nNo reserve data available; scores are partial.\n")
	}

	return b.String()
}
