package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/logtrail/logtrail/internal/llm"
	"github.com/logtrail/logtrail/internal/store"
)

const clarifierAnalysisPrompt = `다음 자연어 질문을 분석하세요.

질문: "%s"

분석 항목:
1. **서비스 정보**:
   - has_service: 서비스 언급 여부 (true/false)
   - service_type: 서비스 유형 ("specific" | "aggregation" | "none")
   - mentioned_services: 언급된 서비스명 배열 (있으면)

2. **쿼리 유형**:
   - is_aggregation: 집계 쿼리 여부 (GROUP BY 필요)
   - is_filter_query: 필터 쿼리 여부 (WHERE 필요)

3. **시간 정보**:
   - has_time: 시간 정보 명시 여부 (true/false)
   - time_clarity: "clear" | "ambiguous" | "none"

4. **재질문 필요성**:
   - needs_service_clarification: 집계 쿼리면 false, 필터 쿼리인데 서비스 없으면 true
   - needs_time_clarification: 모호한 시간 표현이면 true

**응답 형식** (JSON만):
{
  "has_service": true/false,
  "service_type": "specific" | "aggregation" | "none",
  "mentioned_services": ["service1", ...],
  "is_aggregation": true/false,
  "is_filter_query": true/false,
  "has_time": true/false,
  "time_clarity": "clear" | "ambiguous" | "none",
  "needs_service_clarification": true/false,
  "needs_time_clarification": true/false,
  "reasoning": "간단한 설명"
}`

var timeClarificationOptions = []string{
	"최근 1시간", "최근 6시간", "최근 24시간", "최근 48시간", "최근 7일", "사용자 지정...",
}

// clarificationNode runs the LLM once on the resolved question and, per
// its structured read, may surface a service and/or time clarification.
// After two clarification rounds in the same run it no-ops to avoid
// looping the user forever.
func clarificationNode(ctx context.Context, client llm.Client, logRepo *store.LogRepository, state *AgentState) error {
	if state.ClarificationCount >= maxClarificationAttempts {
		state.emit("clarification_skipped", "clarifier", map[string]any{
			"reason":  "max_attempts_reached",
			"message": "재질문 최대 횟수 초과 - 현재 정보로 진행합니다",
		})
		return nil
	}

	question := state.Question
	if state.ResolvedQuestion != "" {
		question = state.ResolvedQuestion
	}

	prompt := fmt.Sprintf(clarifierAnalysisPrompt, question)

	response, err := client.Complete(ctx, prompt)
	if err != nil {
		state.emit("clarification_skipped", "clarifier", map[string]any{
			"reason": "analysis_failed",
			"error":  err.Error(),
		})
		return nil
	}

	match := jsonObjectPattern.FindString(response)
	if match == "" {
		return nil
	}

	var analysis QueryAnalysis
	if err := json.Unmarshal([]byte(match), &analysis); err != nil {
		return nil
	}
	state.QueryAnalysis = analysis

	var clarifications []Clarification

	if analysis.NeedsServiceClarification {
		services, err := availableServices(ctx, logRepo)
		if err == nil && len(services) > 0 {
			clarifications = append(clarifications, Clarification{
				Type:     "missing_info",
				Field:    "service",
				Question: "어떤 서비스의 로그를 분석할까요?",
				Options:  append(services, "전체"),
				Required: false,
			})
		}
	}

	if analysis.NeedsTimeClarification {
		switch analysis.TimeClarity {
		case "ambiguous":
			clarifications = append(clarifications, Clarification{
				Type:        "ambiguous_time",
				Field:       "time",
				Question:    "시간 범위를 명확히 해주세요",
				Options:     timeClarificationOptions,
				Required:    true,
				AllowCustom: true,
			})
		case "none":
			if analysis.IsAggregation {
				clarifications = append(clarifications, Clarification{
					Type:        "missing_info",
					Field:       "time",
					Question:    "분석할 기간을 선택하세요",
					Options:     append(append([]string{}, timeClarificationOptions...), "전체"),
					Required:    false,
					AllowCustom: true,
				})
			}
		}
	}

	if len(clarifications) > 0 {
		state.ClarificationsNeeded = clarifications
		state.ClarificationCount++
		state.emit("clarification_needed", "clarifier", map[string]any{
			"questions": clarifications,
			"count":     len(clarifications),
			"analysis":  analysis,
		})
		return nil
	}

	state.emit("clarification_skipped", "clarifier", map[string]any{
		"reason":   "no_clarification_needed",
		"analysis": analysis,
	})
	return nil
}

func availableServices(ctx context.Context, logRepo *store.LogRepository) ([]string, error) {
	summaries, err := logRepo.GetServices(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, s.Name)
	}
	return names, nil
}
