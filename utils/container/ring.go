package container

// Ring 定长环形窗口
// 功能：保存最近capacity个元素，写满后覆盖最旧元素
type Ring[T any] struct {
	buf   []T
	start int // 最旧元素的位置
	size  int
}

// NewRing 创建容量为capacity的环形窗口
// 说明：capacity小于1时按1处理
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push 追加元素，已满时淘汰最旧元素
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len 当前元素个数
func (r *Ring[T]) Len() int {
	return r.size
}

// Values 按从旧到新的顺序返回元素副本
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := range r.size {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
