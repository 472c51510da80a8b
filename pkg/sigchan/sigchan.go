// Package sigchan provides a coalescing signal channel. Emit never
// blocks: once the buffer is full further signals merge into the ones
// already pending, so a busy producer cannot stall on a slow consumer.
package sigchan

// Chan 信号通道：只表示“有事发生”，不携带数据
type Chan chan struct{}

// New 创建信号通道；buffer 决定最多积压多少个未消费信号
func New(buffer int) Chan {
	if buffer < 1 {
		buffer = 1
	}
	return make(Chan, buffer)
}

// Emit 发送一次信号；缓冲已满时静默合并
func (c Chan) Emit() {
	select {
	case c <- struct{}{}:
	default:
	}
}

// C 返回接收端，供 select 使用
func (c Chan) C() <-chan struct{} { return c }
