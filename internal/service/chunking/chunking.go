// Package chunking 提供文档分块引擎
// 纯函数实现：相同输入与参数必然产生相同的分块序列
package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 默认分块参数
const (
	DefaultSize     = 1000
	DefaultOverlap  = 200
	DefaultMinChunk = 200
)

// Engine 分块引擎
// 优先在句子边界切分，保留 Markdown 结构单元（标题、围栏代码块、段落），
// 重叠只取自选定边界，窗口内找不到边界或剩余不足阈值时退化为定宽切分
type Engine struct {
	size     int
	overlap  int
	minChunk int
}

// NewEngine 创建分块引擎
func NewEngine(size, overlap, minChunk int) *Engine {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if minChunk < 0 {
		minChunk = 0
	}
	return &Engine{size: size, overlap: overlap, minChunk: minChunk}
}

// Chunk 按默认最小块阈值分块
func Chunk(text string, size, overlap int) []string {
	return NewEngine(size, overlap, DefaultMinChunk).Chunk(text)
}

// Chunk 将文本切分为有序分块序列
// 去除各块的前导重叠后顺序拼接可还原原文
func (e *Engine) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= e.size {
		return []string{text}
	}

	fences := fenceMap(text)

	var chunks []string
	start := 0
	for start < len(text) {
		if len(text)-start <= e.size {
			chunks = append(chunks, text[start:])
			break
		}

		limit := start + e.size
		cut, atBoundary := findBoundary(text, start, limit, fences)

		// 窗口内无边界，或切分后剩余不足最小块阈值：定宽切分
		if !atBoundary || len(text)-cut < e.minChunk {
			cut = limit
			for cut > start && !utf8.RuneStart(text[cut]) {
				cut--
			}
			// 窗口装不下一个完整字符时，至少前进一个字符，保证推进
			if cut <= start {
				_, w := utf8.DecodeRuneInString(text[start:])
				cut = start + w
			}
			atBoundary = false
		}

		chunks = append(chunks, text[start:cut])

		next := cut
		if atBoundary && e.overlap > 0 {
			next = overlapStart(text, cut, e.overlap)
		}
		if next <= start {
			next = cut
		}
		start = next
	}

	return chunks
}

// 边界优先级：段落 > 句子 > 行（围栏外优先） > 空格
func findBoundary(text string, start, limit int, fences []bool) (int, bool) {
	var para, sent, nlOut, nlIn, space int

	for i := start; i < limit; {
		r, w := utf8.DecodeRuneInString(text[i:])
		next := i + w

		switch {
		case r == '\n':
			if next < limit && text[next] == '\n' && !fences[i] {
				// 段落分隔：吞掉连续空行
				cut := next + 1
				for cut < limit && text[cut] == '\n' {
					cut++
				}
				if cut > start {
					para = cut
				}
				i = cut
				continue
			}
			if fences[i] {
				nlIn = next
			} else {
				nlOut = next
			}
		case isSentenceEnd(r) && !fences[i]:
			if next < limit {
				nr, _ := utf8.DecodeRuneInString(text[next:])
				if unicode.IsSpace(nr) {
					// 句子边界：切点越过后续空白
					cut := next
					for cut < limit {
						sr, sw := utf8.DecodeRuneInString(text[cut:])
						if !unicode.IsSpace(sr) {
							break
						}
						cut += sw
					}
					if cut > start {
						sent = cut
					}
				}
			}
		case r == ' ' || r == '\t':
			space = next
		}
		i = next
	}

	for _, cut := range []int{para, sent, nlOut, nlIn, space} {
		if cut > start {
			return cut, true
		}
	}
	return 0, false
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// overlapStart 计算下一块的起点：在重叠窗口内找最早的词首位置
// 重叠不足以对齐到词首时放弃重叠
func overlapStart(text string, cut, overlap int) int {
	lo := cut - overlap
	if lo < 0 {
		lo = 0
	}
	for lo < cut && !utf8.RuneStart(text[lo]) {
		lo++
	}

	q := lo
	if q > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:q])
		if !unicode.IsSpace(r) {
			// 不在词首，向前找下一个空白后的位置
			idx := strings.IndexFunc(text[q:cut], unicode.IsSpace)
			if idx < 0 {
				return cut
			}
			q += idx
		}
	}

	// 跳过空白本身，重叠从下一个词开始
	for q < cut {
		r, w := utf8.DecodeRuneInString(text[q:])
		if !unicode.IsSpace(r) {
			break
		}
		q += w
	}
	if q >= cut {
		return cut
	}
	return q
}

// fenceMap 标记处于围栏代码块内的字节（含围栏分隔行）
func fenceMap(text string) []bool {
	fences := make([]bool, len(text)+1)
	inFence := false
	lineStart := 0

	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			line := strings.TrimLeft(text[lineStart:i], " \t")
			isDelim := strings.HasPrefix(line, "```")
			if isDelim || inFence {
				for j := lineStart; j <= i && j < len(fences); j++ {
					fences[j] = true
				}
			}
			if isDelim {
				inFence = !inFence
			}
			lineStart = i + 1
		}
	}
	return fences
}
