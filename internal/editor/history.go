package editor

import "slidestudio/internal/slide"

// DefaultHistoryLimit 是默认保留的快照数量。
const DefaultHistoryLimit = 50

// History 是元素快照的线性撤销/重做日志（快照 + 指针）。
// 快照与 Store 共享底层数组，Store 的修改总是替换整个切片，所以无需深拷贝。
type History struct {
	entries [][]slide.TextElement
	index   int
	limit   int
}

// NewHistory 以初始状态作为第一条记录。limit <= 1 时使用默认值。
func NewHistory(initial []slide.TextElement, limit int) *History {
	if limit <= 1 {
		limit = DefaultHistoryLimit
	}
	return &History{
		entries: [][]slide.TextElement{initial},
		limit:   limit,
	}
}

// Commit 记录一次已提交的修改。撤销之后的重做分支会被丢弃；超出上限时丢弃最早的记录。
func (h *History) Commit(snapshot []slide.TextElement) {
	h.entries = append(h.entries[:h.index+1:h.index+1], snapshot)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = h.entries[over:]
	}
	h.index = len(h.entries) - 1
}

// Undo 返回上一个快照；没有可撤销的记录时 ok 为 false。
func (h *History) Undo() ([]slide.TextElement, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.index--
	return h.entries[h.index], true
}

// Redo 返回下一个快照；没有可重做的记录时 ok 为 false。
func (h *History) Redo() ([]slide.TextElement, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *History) Current() []slide.TextElement {
	return h.entries[h.index]
}

func (h *History) CanUndo() bool { return h.index > 0 }

func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

func (h *History) Len() int { return len(h.entries) }

// Index 返回当前指针位置。
func (h *History) Index() int { return h.index }
