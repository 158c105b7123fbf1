package services

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/markdave123-py/Surveya/internal/models"
)

// AnalyticsStore is the read slice of the persistence gateway the analytics
// service needs.
type AnalyticsStore interface {
	GetTemplateByID(ctx context.Context, id string) (*models.SurveyTemplate, error)
	ListResponsesByTemplate(ctx context.Context, templateID string) ([]models.Response, error)
}

// CSIQuestionStats aggregates the 1..5 ratings of one csi question.
type CSIQuestionStats struct {
	Question  string  `json:"question"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Histogram [5]int  `json:"histogram"` // index i counts rating i+1
}

// WordCount is one entry of the open-answer frequency list.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// AnalyticsSummary is the lightweight text-analytics view of one template's
// responses; plotting and word clouds are left to the dashboard frontend.
type AnalyticsSummary struct {
	TemplateID     string             `json:"template_id"`
	Title          string             `json:"title"`
	TotalResponses int                `json:"total_responses"`
	CSI            []CSIQuestionStats `json:"csi"`
	TopWords       []WordCount        `json:"top_words"`
}

type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

const topWordsLimit = 10

// Summary aggregates all responses recorded against a template. It returns
// (nil, nil) when the template does not exist.
func (s *AnalyticsService) Summary(ctx context.Context, templateID string) (*AnalyticsSummary, error) {
	tpl, err := s.store.GetTemplateByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, nil
	}

	responses, err := s.store.ListResponsesByTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	summary := &AnalyticsSummary{
		TemplateID:     tpl.ID,
		Title:          tpl.Title,
		TotalResponses: len(responses),
	}

	csiByQuestion := make(map[string]*CSIQuestionStats)
	csiOrder := []string{}
	wordCounts := make(map[string]int)

	for _, r := range responses {
		switch r.Type {
		case models.QuestionCSI:
			rating, err := strconv.Atoi(r.Answer)
			if err != nil || rating < 1 || rating > 5 {
				continue
			}
			st, ok := csiByQuestion[r.Question]
			if !ok {
				st = &CSIQuestionStats{Question: r.Question}
				csiByQuestion[r.Question] = st
				csiOrder = append(csiOrder, r.Question)
			}
			st.Count++
			st.Histogram[rating-1]++
		case models.QuestionOpen:
			for _, w := range tokenize(r.Answer) {
				wordCounts[w]++
			}
		}
	}

	for _, q := range csiOrder {
		st := csiByQuestion[q]
		st.Mean, st.StdDev = ratingMoments(st.Histogram, st.Count)
		summary.CSI = append(summary.CSI, *st)
	}
	summary.TopWords = topWords(wordCounts, topWordsLimit)

	return summary, nil
}

// ratingMoments computes mean and sample standard deviation from a 1..5
// histogram.
func ratingMoments(hist [5]int, count int) (mean, stddev float64) {
	if count == 0 {
		return 0, 0
	}
	var sum float64
	for i, n := range hist {
		sum += float64(i+1) * float64(n)
	}
	mean = sum / float64(count)

	if count < 2 {
		return mean, 0
	}
	var sq float64
	for i, n := range hist {
		d := float64(i+1) - mean
		sq += d * d * float64(n)
	}
	return mean, math.Sqrt(sq / float64(count-1))
}

// stopwords covers the filler words of the bot's user base; everything else
// counts.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "this": {}, "with": {},
	"was": {}, "are": {}, "but": {}, "not": {}, "you": {}, "have": {},
	"very": {}, "they": {}, "its": {}, "все": {}, "это": {}, "как": {},
	"что": {}, "или": {}, "очень": {}, "быть": {}, "для": {},
}

// tokenize lowercases the answer and keeps alphabetic words of three or
// more letters that are not stopwords.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func topWords(counts map[string]int, limit int) []WordCount {
	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
