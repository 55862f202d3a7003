package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/logtrail/logtrail/internal/llm"
	"github.com/logtrail/logtrail/internal/model"
)

// knownServices is the enumerated service set the extraction prompt
// offers the model; anything else must come back as null rather than a
// hallucinated name.
var knownServices = []string{
	"payment-api", "order-api", "user-api", "auth-api",
	"inventory-api", "notification-api", "web-app",
}

const serviceOnlyExtractionPrompt = `다음 자연어 질문에서 서비스명을 추출하세요.

질문: "%s"

추출할 서비스:
- payment-api, order-api, user-api, auth-api, inventory-api, notification-api, web-app 중 하나
- "결제", "페이먼트" → payment-api
- "주문" → order-api
- "사용자", "유저" → user-api
- "인증", "로그인" → auth-api
- "재고" → inventory-api
- "알림", "노티" → notification-api

**중요**: 질문에 명시적으로 언급된 것만 추출하세요. 없으면 null을 반환하세요.

응답 형식 (JSON만):
{
  "service": "payment-api" | "order-api" | "user-api" | "auth-api" | "inventory-api" | "notification-api" | "web-app" | null,
  "confidence": 0.0 ~ 1.0
}`

const fullExtractionPrompt = `다음 자연어 질문에서 로그 필터를 추출하세요.

질문: "%s"

추출할 필터:
1. **서비스명**: payment-api, order-api, user-api, auth-api, inventory-api, notification-api, web-app 중 하나
   - "결제", "페이먼트" → payment-api
   - "주문" → order-api
   - "사용자", "유저" → user-api
   - "인증", "로그인" → auth-api
   - "재고" → inventory-api
   - "알림", "노티" → notification-api

2. **시간 범위** (구조화된 형식):
   a) 상대 시간: "최근 N시간/일/주/월" → {"type": "relative", "relative": {"value": N, "unit": "h/d/w/m"}}
   b) 절대 날짜: "YYYY-MM-DD부터 YYYY-MM-DD까지" → {"type": "absolute", "absolute": {"start": "YYYY-MM-DD", "end": "YYYY-MM-DD"}}
   c) 자연어 표현 (오늘 날짜: %s): "작년", "이번 달", "지난주", "오늘", "어제", "최근"/"방금"/"조금 전" 등을 오늘 날짜 기준으로 해석
   d) 명시 없음: {"type": null, "relative": null, "absolute": null}

**중요**:
- 질문에 명시적으로 언급된 것만 추출하세요
- 오늘 날짜(%s)를 기준으로 상대적 날짜를 계산하세요
- JSON 형식으로만 응답하세요

응답 형식 (JSON만):
{
  "service": "payment-api" | "order-api" | "user-api" | "auth-api" | "inventory-api" | "notification-api" | "web-app" | null,
  "time_range": {
    "type": "relative" | "absolute" | null,
    "relative": {"value": N, "unit": "h/d/w/m"} | null,
    "absolute": {"start": "YYYY-MM-DD", "end": "YYYY-MM-DD"} | null
  },
  "confidence": 0.0 ~ 1.0
}`

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

type rawTimeRange struct {
	Type     *string `json:"type"`
	Relative *struct {
		Value int    `json:"value"`
		Unit  string `json:"unit"`
	} `json:"relative"`
	Absolute *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"absolute"`
}

type extractionResult struct {
	Service    *string       `json:"service"`
	TimeRange  *rawTimeRange `json:"time_range"`
	Confidence float64       `json:"confidence"`
}

func (r *rawTimeRange) toModel() (model.TimeRange, bool) {
	if r == nil || r.Type == nil {
		return model.TimeRange{}, false
	}
	switch *r.Type {
	case "relative":
		if r.Relative == nil {
			return model.TimeRange{}, false
		}
		return model.TimeRange{
			Kind: model.TimeRangeRelative,
			Relative: model.RelativeRange{
				Value: r.Relative.Value,
				Unit:  model.RelativeUnit(r.Relative.Unit),
			},
		}, true
	case "absolute":
		if r.Absolute == nil {
			return model.TimeRange{}, false
		}
		start, errStart := time.Parse("2006-01-02", r.Absolute.Start)
		end, errEnd := time.Parse("2006-01-02", r.Absolute.End)
		if errStart != nil || errEnd != nil {
			return model.TimeRange{}, false
		}
		return model.TimeRange{
			Kind:     model.TimeRangeAbsolute,
			Absolute: model.AbsoluteRange{Start: start, End: end},
		}, true
	default:
		return model.TimeRange{}, false
	}
}

// extractFiltersNode always runs. A caller-supplied structured time
// range (from an explicit picker) wins for the time dimension and is
// validated on its own; an invalid one aborts the node early exactly as
// the original does, leaving the service dimension unextracted for this
// turn. Otherwise both service and time are derived from a single LLM
// call with a JSON-schema response contract, anchored to today's date
// for natural-language expressions.
func extractFiltersNode(ctx context.Context, client llm.Client, now time.Time, state *AgentState) error {
	question := state.Question
	if state.ResolvedQuestion != "" {
		question = state.ResolvedQuestion
	}

	hasCustomTime := state.TimeRangeStructuredSet

	if hasCustomTime {
		ok, errMsg := state.TimeRangeStructured.Validate(now)
		if !ok {
			state.emit("validation_error", "extract_filters", map[string]any{
				"error": errMsg,
				"field": "time_range",
			})
			return nil
		}
	}

	var prompt string
	if hasCustomTime {
		prompt = fmt.Sprintf(serviceOnlyExtractionPrompt, question)
	} else {
		today := now.Format("2006-01-02")
		prompt = fmt.Sprintf(fullExtractionPrompt, question, today, today)
	}

	response, err := client.Complete(ctx, prompt)
	if err != nil {
		state.emit("filters_extracted", "extract_filters", map[string]any{
			"service":    nil,
			"time_range": nil,
			"confidence": 0.0,
			"error":      err.Error(),
		})
		return nil
	}

	match := jsonObjectPattern.FindString(response)
	if match == "" {
		state.emit("filters_extracted", "extract_filters", map[string]any{
			"service":    nil,
			"time_range": nil,
			"confidence": 0.0,
		})
		return nil
	}

	var parsed extractionResult
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		state.emit("filters_extracted", "extract_filters", map[string]any{
			"service":    nil,
			"time_range": nil,
			"confidence": 0.0,
			"error":      err.Error(),
		})
		return nil
	}

	if parsed.Service != nil {
		state.ExtractedService = *parsed.Service
	}
	state.ExtractionConfidence = parsed.Confidence

	if hasCustomTime {
		state.ExtractedTimeRange = state.TimeRangeStructured
		state.ExtractedTimeRangeSet = true
	} else if tr, ok := parsed.TimeRange.toModel(); ok {
		if valid, _ := tr.Validate(now); valid {
			state.ExtractedTimeRange = tr
			state.ExtractedTimeRangeSet = true
		}
	}

	state.emit("filters_extracted", "extract_filters", map[string]any{
		"service":    state.ExtractedService,
		"confidence": state.ExtractionConfidence,
	})

	return nil
}
