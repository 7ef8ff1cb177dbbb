package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/agent-chat/internal/model"
)

const (
	// DefaultTimeout 单次工具调用超时
	DefaultTimeout = 15 * time.Second
	// DefaultPreviewBytes 工具输出在响应日志中的最大字节数
	DefaultPreviewBytes = 500
)

// Call 模型请求的一次工具调用
type Call struct {
	ID        string
	Name      string
	Arguments string
}

// Result 单次工具调用的执行结果
//
// Output 保存完整输出供后续模型轮使用，Log 中只保留截断预览。
type Result struct {
	CallID string
	Output string
	Log    model.ToolCallLog
}

// Executor 执行模型请求的工具调用，保证逐调用错误隔离
type Executor struct {
	timeout      time.Duration
	previewBytes int
}

// NewExecutor 创建执行器，非正值参数回落到默认值
func NewExecutor(timeout time.Duration, previewBytes int) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if previewBytes <= 0 {
		previewBytes = DefaultPreviewBytes
	}
	return &Executor{timeout: timeout, previewBytes: previewBytes}
}

// Execute 按请求顺序逐个执行工具调用
//
// 单个调用失败（未知工具、参数非法、执行出错、超时、panic）只标记
// 该调用的 Error，不影响其他调用。
func (e *Executor) Execute(ctx context.Context, defs []Definition, calls []Call) []Result {
	byName := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.executeOne(ctx, byName, call))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, byName map[string]Definition, call Call) Result {
	res := Result{
		CallID: call.ID,
		Log:    model.ToolCallLog{Name: call.Name},
	}

	repaired := repairArguments(call.Arguments)

	var args map[string]any
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		res.Log.Error = fmt.Sprintf("invalid tool arguments: %v", err)
		res.Output = errorOutput(res.Log.Error)
		return res
	}
	res.Log.Input = args

	def, ok := byName[call.Name]
	if !ok {
		res.Log.Error = fmt.Sprintf("tool not available: %s", call.Name)
		res.Output = errorOutput(res.Log.Error)
		return res
	}

	if err := validateArguments(def.Params, args); err != nil {
		res.Log.Error = err.Error()
		res.Output = errorOutput(res.Log.Error)
		return res
	}

	output, err := e.invoke(ctx, def, repaired)
	if err != nil {
		res.Log.Error = err.Error()
		res.Output = errorOutput(res.Log.Error)
		return res
	}

	res.Output = output
	res.Log.OutputPreview = truncatePreview(output, e.previewBytes)
	return res
}

// invoke 在超时与 panic 保护下运行工具
func (e *Executor) invoke(ctx context.Context, def Definition, arguments string) (output string, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type invokeResult struct {
		output string
		err    error
	}
	done := make(chan invokeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Tool %s panicked: %v", def.Name, r)
				done <- invokeResult{err: fmt.Errorf("tool %s panicked: %v", def.Name, r)}
			}
		}()
		out, runErr := def.Tool.InvokableRun(ctx, arguments)
		done <- invokeResult{output: out, err: runErr}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("tool %s failed: %w", def.Name, r.err)
		}
		return r.output, nil
	case <-ctx.Done():
		return "", fmt.Errorf("tool %s timed out: %w", def.Name, ctx.Err())
	}
}

// validateArguments 依据工具参数定义校验已解析的参数
func validateArguments(params map[string]*schema.ParameterInfo, args map[string]any) error {
	for name, p := range params {
		value, ok := args[name]
		if !ok || value == nil {
			if p.Required {
				return fmt.Errorf("missing required argument: %s", name)
			}
			continue
		}
		if err := checkType(name, p.Type, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name string, t schema.DataType, value any) error {
	var ok bool
	switch t {
	case schema.String:
		_, ok = value.(string)
	case schema.Number, schema.Integer:
		_, ok = value.(float64)
	case schema.Boolean:
		_, ok = value.(bool)
	case schema.Object:
		_, ok = value.(map[string]any)
	case schema.Array:
		_, ok = value.([]any)
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("argument %s has wrong type, expected %s", name, t)
	}
	return nil
}

// repairArguments 修复模型输出中常见的 JSON 缺陷
//
// 快速路径直接返回合法 JSON；否则剥离模型伪迹后交给 jsonrepair。
// 修复失败时返回原始字符串，让解析错误正常上报。
func repairArguments(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "{}"
	}
	if json.Valid([]byte(s)) {
		return s
	}

	// 剥离 markdown 代码块包装
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	// 截取最外层大括号之间的内容
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
			s = candidate
		}
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s
	}
	return repaired
}

// truncatePreview 按字节上限截断输出，保持 UTF-8 完整
func truncatePreview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func errorOutput(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}
