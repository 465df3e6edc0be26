package editor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/oklog/ulid/v2"

	"slidestudio/internal/slide"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrInvalidElement  = errors.New("invalid element")
)

// DuplicateOffset 是复制元素时的位置偏移（百分比）。
const DuplicateOffset = 5.0

// NewElementID 生成按时间排序的元素 ID。
func NewElementID() string {
	return ulid.Make().String()
}

// StylePatch 只允许修改 slide.StyleKeys 中的属性。
type StylePatch map[slide.StyleKey]string

// ElementPatch 是对单个元素的部分更新，nil 字段保持不变。
type ElementPatch struct {
	Type     *slide.ElementType `json:"type,omitempty"`
	Text     *string            `json:"text,omitempty"`
	Position *slide.Position    `json:"position,omitempty"`
	Style    StylePatch         `json:"style,omitempty"`
}

// Empty 判断补丁是否没有任何修改。
func (p ElementPatch) Empty() bool {
	return p.Type == nil && p.Text == nil && p.Position == nil && len(p.Style) == 0
}

// apply 返回应用补丁后的元素；坐标总是被限制在画布内。
func (p ElementPatch) apply(el slide.TextElement) (slide.TextElement, error) {
	if p.Type != nil {
		if !p.Type.Valid() {
			return el, fmt.Errorf("unsupported element type %q", *p.Type)
		}
		el.Type = *p.Type
	}
	if p.Text != nil {
		el.Text = *p.Text
	}
	if p.Position != nil {
		el.Position = p.Position.Clamp()
	}
	for _, key := range slide.StyleKeys {
		value, ok := p.Style[key]
		if !ok {
			continue
		}
		next, err := el.Style.With(key, value)
		if err != nil {
			return el, err
		}
		el.Style = next
	}
	for key := range p.Style {
		if _, err := slide.ParseStyleKey(string(key)); err != nil {
			return el, err
		}
	}
	return el, nil
}

// Store 保存当前编辑幻灯片的有序元素列表。
// 每次修改都会替换整个切片，旧切片保持不变，因此历史记录可以直接按引用保存快照。
type Store struct {
	elements []slide.TextElement
	selected string
	newID    func() string
}

// NewStore 以给定元素初始化；入参会被复制。
func NewStore(elements []slide.TextElement) *Store {
	return &Store{
		elements: slices.Clone(elements),
		newID:    NewElementID,
	}
}

// Elements 返回当前元素的副本。
func (s *Store) Elements() []slide.TextElement {
	return slices.Clone(s.elements)
}

func (s *Store) snapshot() []slide.TextElement {
	return s.elements
}

func (s *Store) restore(snapshot []slide.TextElement) {
	s.elements = snapshot
	if s.selected != "" && s.indexOf(s.selected) < 0 {
		s.selected = ""
	}
}

func (s *Store) Len() int {
	return len(s.elements)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.elements, func(el slide.TextElement) bool { return el.ID == id })
}

// Get 按 ID 查找元素。
func (s *Store) Get(id string) (slide.TextElement, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return slide.TextElement{}, false
	}
	return s.elements[i], true
}

// Selected 返回当前选中元素的 ID，未选中时为空。
func (s *Store) Selected() string {
	return s.selected
}

// Select 选中元素；ID 不存在时返回 ErrElementNotFound。
func (s *Store) Select(id string) error {
	if s.indexOf(id) < 0 {
		return ErrElementNotFound
	}
	s.selected = id
	return nil
}

func (s *Store) ClearSelection() {
	s.selected = ""
}

// DefaultElement 返回指定类型的新元素模板。
func DefaultElement(t slide.ElementType) slide.TextElement {
	if !t.Valid() {
		t = slide.ElementParagraph
	}
	return slide.TextElement{
		Type:     t,
		Text:     "New text",
		Position: slide.Position{X: 50, Y: 50},
		Style:    slide.DefaultStyle(t),
	}
}

// Add 追加元素并选中它，返回新生成的 ID。seed 为 nil 时使用默认段落。
func (s *Store) Add(seed *slide.TextElement) (string, error) {
	el := DefaultElement(slide.ElementParagraph)
	if seed != nil {
		el = *seed
		if el.Type == "" {
			el.Type = slide.ElementParagraph
		}
		if !el.Type.Valid() {
			return "", fmt.Errorf("%w: unsupported element type %q", ErrInvalidElement, el.Type)
		}
		if el.Style == (slide.Style{}) {
			el.Style = slide.DefaultStyle(el.Type)
		}
		if err := el.Style.Validate(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidElement, err)
		}
	}
	el.ID = s.newID()
	el.Position = el.Position.Clamp()

	next := make([]slide.TextElement, len(s.elements), len(s.elements)+1)
	copy(next, s.elements)
	s.elements = append(next, el)
	s.selected = el.ID
	return el.ID, nil
}

// Update 合并部分更新。ID 不存在时不做任何事并返回 false。
func (s *Store) Update(id string, patch ElementPatch) (bool, error) {
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	updated, err := patch.apply(s.elements[i])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}
	if updated == s.elements[i] {
		return false, nil
	}
	next := slices.Clone(s.elements)
	next[i] = updated
	s.elements = next
	return true, nil
}

// Remove 删除元素；若它被选中则清空选中状态。
func (s *Store) Remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.elements = slices.Delete(slices.Clone(s.elements), i, i+1)
	if s.selected == id {
		s.selected = ""
	}
	return true
}

// Duplicate 复制元素，新元素偏移 (+5%, +5%) 并被选中。
func (s *Store) Duplicate(id string) (string, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return "", false
	}
	clone := s.elements[i]
	clone.ID = s.newID()
	clone.Position = clone.Position.Offset(DuplicateOffset, DuplicateOffset).Clamp()

	next := make([]slide.TextElement, len(s.elements), len(s.elements)+1)
	copy(next, s.elements)
	s.elements = append(next, clone)
	s.selected = clone.ID
	return clone.ID, true
}
