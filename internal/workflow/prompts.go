package workflow

import "fmt"

const sqlGenerationPrompt = `You are an expert PostgreSQL database analyst specializing in log analysis systems.

# Database Schema
%s

# Sample Data
%s

# Important Rules
1. **ALWAYS** include: ` + "`WHERE deleted = FALSE`" + `
2. **ONLY** generate SELECT queries (no INSERT, UPDATE, DELETE, DROP)
3. Use proper indexes for performance:
   - idx_logs_service_level_created_at: (service, level, created_at DESC)
   - idx_logs_error_type_created_at: (error_type, created_at DESC)
   - idx_logs_user_id_created_at: (user_id, created_at DESC)
   - idx_logs_trace_id: (trace_id)
4. Always add ` + "`ORDER BY created_at DESC`" + ` for time-series data
5. Limit results to prevent overload (MAX %d)
6. Use ` + "`NOW() - INTERVAL '...'`" + ` for time filtering
7. For JSONB metadata queries, use ` + "`->>`" + ` for text or ` + "`->`" + ` for JSON

# Field Descriptions
- **path**: Backend API endpoint (/api/v1/payment) or Frontend page (/checkout)
- **log_type**: BACKEND, FRONTEND, MOBILE, IOT, WORKER
- **level**: TRACE, DEBUG, INFO, WARN, ERROR, FATAL
- **trace_id**: Distributed tracing ID (connect frontend ↔ backend)
- **function_name**, **file_path**: Extracted from stack trace (both frontend & backend)
- **metadata**: JSONB with performance, browser, business context

# Example Queries

Q: "최근 1시간 에러 로그"
A:
` + "```sql" + `
SELECT id, created_at, service, level, message, error_type
FROM logs
WHERE level = 'ERROR'
  AND created_at > NOW() - INTERVAL '1 hour'
  AND deleted = FALSE
ORDER BY created_at DESC
LIMIT 100;
` + "```" + `

Q: "payment-api 서비스에서 가장 많이 발생한 에러 top 5"
A:
` + "```sql" + `
SELECT error_type, COUNT(*) as count,
       COUNT(DISTINCT user_id) as affected_users
FROM logs
WHERE service = 'payment-api'
  AND level = 'ERROR'
  AND deleted = FALSE
GROUP BY error_type
ORDER BY count DESC
LIMIT 5;
` + "```" + `

Q: "느린 API 찾기 (1초 이상)"
A:
` + "```sql" + `
SELECT path, AVG(duration_ms) as avg_ms, COUNT(*) as count
FROM logs
WHERE duration_ms > 1000
  AND log_type = 'BACKEND'
  AND deleted = FALSE
  AND created_at > NOW() - INTERVAL '24 hours'
GROUP BY path
ORDER BY avg_ms DESC
LIMIT 10;
` + "```" + `

# Important Aggregation Rules
**When to use GROUP BY:**
- Questions asking for counts, per-service, or by-time breakdowns MUST use GROUP BY
- Questions asking for trends, distribution, or aggregation MUST use GROUP BY
- Questions asking for average, max/min, or sum MUST use aggregation functions

**Time-series grouping:**
- Use ` + "`DATE_TRUNC('hour', created_at)`" + ` for hourly aggregation
- Use ` + "`DATE_TRUNC('day', created_at)`" + ` for daily aggregation
- Always include ` + "`GROUP BY DATE_TRUNC(...)`" + ` when using DATE_TRUNC

**Performance optimization:**
- Always add WHERE filters BEFORE GROUP BY
- Always include ORDER BY for aggregated results
- Use LIMIT to prevent returning too many rows

# User Question
%s

# Your Task
Generate **ONLY the SQL query** without any explanation.
The SQL must be valid PostgreSQL syntax and follow all rules above.

SQL:`

func formatSQLGenerationPrompt(schemaInfo, sampleData string, maxResults int, question string) string {
	return fmt.Sprintf(sqlGenerationPrompt, schemaInfo, sampleData, maxResults, question)
}

const insightGenerationPrompt = `You are a log analysis expert. Analyze the query results and provide actionable insights in Korean.

# Original Question
%s

# Generated SQL
` + "```sql" + `
%s
` + "```" + `

# Query Results
%s

# Execution Info
- Result count: %d
- Execution time: %.2fms

# Your Task
Provide a concise analysis in Korean (2-4 sentences):
1. **요약**: What do the results show?
2. **인사이트**: Any patterns, anomalies, or important findings?
3. **추천**: Actionable recommendations (if applicable)

Analysis:`

func formatInsightPrompt(question, sql, resultsPreview string, count int, executionTimeMS float64) string {
	return fmt.Sprintf(insightGenerationPrompt, question, sql, resultsPreview, count, executionTimeMS)
}

const contextAwareAnalysisPrompt = `당신은 대화 맥락을 이해하는 질문 분석 전문가입니다.
사용자의 질문을 대화 히스토리와 현재 포커스를 고려하여 분석하고 명확하게 만드세요.

# 대화 히스토리
%s

# 현재 포커스
%s

# 사용자 질문
%s

# 분석 작업

1. **참조 해석**: 질문에 대명사나 참조가 있으면 구체적으로 변환
   - "그 에러" → 이전 대화에서 언급된 구체적 error_type
   - "그 서비스" → 이전 대화에서 언급된 구체적 service
   - "그때" → 이전 대화에서 언급된 구체적 time_range
   - "더 자세히" → 이전 쿼리 파라미터 유지

2. **맥락 보강**: 대화 히스토리나 포커스 정보를 활용하여 질문을 더 명확하게
   - 포커스에 service가 있고 질문에 명시 안 되어 있으면 암묵적으로 같은 서비스 가정
   - 이전에 특정 시간대를 분석했다면 연속성 고려
   - 단, 사용자가 명시적으로 다른 대상을 지정하면 그것을 우선

3. **원본 유지**: 참조나 맥락 보강이 필요 없으면 원본 질문 그대로 반환

# 출력 형식
명확하게 해석된 질문만 반환하세요. 설명이나 주석 없이 질문만 출력하세요.

해석된 질문:`

func formatContextResolutionPrompt(history, focus, question string) string {
	return fmt.Sprintf(contextAwareAnalysisPrompt, history, focus, question)
}
