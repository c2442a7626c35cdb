package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/model"
)

const analyzeSystemPrompt = `You are a Valorant scrim analyst. You are given structured data
from a scrim-tracking tool and a question from the team's coach.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Small samples (fewer than 5 games on a map or composition) are weak evidence; say so.
- Be concise and actionable. Focus on what the team can change in practice.

Metrics glossary:
- win_rate: wins / decided games, in percent. Draws count as games, not wins.
- atk_wr / def_wr: average round win rate on attack / defence, in percent.
- round_wr: mean of atk_wr and def_wr.
- post_plant: success rate once the spike is planted, in percent.
- retake: success rate retaking a planted site, in percent.
- pistol_wr: pistol rounds won over two per match, in percent.
- kpr / dpr / apr / fkpr: kills, deaths, assists and first kills per round.
- delta: observed minus the role benchmark; positive kpr/apr/fkpr and negative dpr are good.
- null means the metric could not be computed from the sheet.`

var (
	analyzeModel  string
	analyzeAPIKey string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI-powered grounded analysis (requires ANTHROPIC_API_KEY)",
}

var analyzeMapsCmd = &cobra.Command{
	Use:   "maps <question>",
	Short: "Analyze map, round and composition results with AI",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeMaps,
}

var analyzeAgentsCmd = &cobra.Command{
	Use:   "agents <question>",
	Short: "Analyze agent and role performance with AI",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeAgents,
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default from config)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")

	addRangeFlags(analyzeMapsCmd)
	addMapFlag(analyzeMapsCmd)

	analyzeAgentsCmd.Flags().StringVar(&viewPlayer, "player", "", "restrict to one player")
	addMapFlag(analyzeAgentsCmd)

	analyzeCmd.AddCommand(analyzeMapsCmd)
	analyzeCmd.AddCommand(analyzeAgentsCmd)
}

func runAnalyzeMaps(cmd *cobra.Command, args []string) error {
	table := loadScores(cmd.Context())
	if !requireRows(table) {
		return nil
	}
	f := viewFilter()
	if err := f.Validate(table); err != nil {
		return err
	}

	maps, err := aggregator.MapSummary(table, aggregator.Filter{Start: f.Start, End: f.End})
	if err != nil {
		return fmt.Errorf("map summary: %w", err)
	}
	rounds, _, err := aggregator.RoundInsights(table, f)
	if err != nil {
		return fmt.Errorf("round insights: %w", err)
	}
	var comps []model.CompositionSummary
	if roster := loadRoster(cmd.Context()); len(roster) > 0 {
		comps, err = aggregator.Compositions(roster, table, f, appCfg.Analysis.TopCompositions)
		if err != nil {
			return fmt.Errorf("compositions: %w", err)
		}
	}

	contextJSON, err := buildMapsContext(f, maps, rounds, comps)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), contextJSON, args[0])
}

func runAnalyzeAgents(cmd *cobra.Command, args []string) error {
	players := loadPlayers(cmd.Context())
	aggs := aggregator.AgentSummary(players, viewFilter())
	if len(aggs) == 0 {
		return fmt.Errorf("no player rows matched the selection")
	}
	contextJSON, err := buildAgentsContext(viewFilter(), aggs, aggregator.CompareRoles(aggs))
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), contextJSON, args[0])
}

// buildMapsContext serialises map, round and composition results into compact JSON.
func buildMapsContext(f aggregator.Filter, maps []model.SummaryRow, rounds []model.RoundSummary, comps []model.CompositionSummary) (string, error) {
	mapEntries := make([]map[string]any, 0, len(maps))
	for _, m := range maps {
		mapEntries = append(mapEntries, outcomeEntry(m))
	}

	roundEntries := make([]map[string]any, 0, len(rounds))
	for _, r := range rounds {
		e := outcomeEntry(r.SummaryRow)
		if r.HasSides {
			e["atk_wr"] = metric(r.AvgAtkWR)
			e["def_wr"] = metric(r.AvgDefWR)
			e["round_wr"] = metric(r.RoundWR)
		}
		if r.HasPostPlant {
			e["post_plant"] = metric(r.PostPlant)
		}
		if r.HasRetake {
			e["retake"] = metric(r.Retake)
		}
		if r.HasPistol {
			e["pistol_wins"] = r.PistolWins
			e["pistol_wr"] = metric(r.PistolWR)
		}
		roundEntries = append(roundEntries, e)
	}

	compEntries := make([]map[string]any, 0, len(comps))
	for _, c := range comps {
		e := outcomeEntry(c.SummaryRow)
		e["agents"] = c.Agents
		compEntries = append(compEntries, e)
	}

	doc := map[string]any{
		"subject":      "scrims",
		"filters":      f,
		"maps":         mapEntries,
		"rounds":       roundEntries,
		"compositions": compEntries,
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// buildAgentsContext serialises agent aggregates and role comparisons into compact JSON.
func buildAgentsContext(f aggregator.Filter, aggs []model.AgentAggregate, roles []model.RoleComparison) (string, error) {
	agents := make([]map[string]any, 0, len(aggs))
	for _, a := range aggs {
		agents = append(agents, map[string]any{
			"agent":        a.Agent,
			"role":         a.Role,
			"maps":         a.Matches,
			"kills":        a.Kills,
			"deaths":       a.Deaths,
			"assists":      a.Assists,
			"rounds":       a.Rounds,
			"first_kills":  a.FirstKills,
			"plants":       a.Plants,
			"kd":           metric(a.KDRatio()),
			"ka_per_round": metric(a.KAPerRound()),
			"avg_acs":      metric(a.AvgACS()),
		})
	}
	doc := map[string]any{
		"subject": "agents",
		"filters": f,
		"agents":  agents,
		"roles":   roles,
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

func outcomeEntry(s model.SummaryRow) map[string]any {
	wr := s.WinRate() * 100
	return map[string]any{
		"name":     s.Key,
		"games":    s.Games,
		"wins":     s.Wins,
		"draws":    s.Draws,
		"losses":   s.Losses,
		"win_rate": metric(wr),
	}
}

// metric rounds v to 2 decimals, nil when undefined.
func metric(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return math.Round(v*100) / 100
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, dataJSON, question string) error {
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = appCfg.APIKey()
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}
	modelID := analyzeModel
	if modelID == "" {
		modelID = appCfg.Analyst.Model
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)
	logger.Debug("analyst request", "model", modelID, "context_bytes", len(dataJSON))

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed: check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
