package fluentzip

// ProgressCallback 进度回调函数
// current: 已处理条目数, total: 总条目数, name: 当前处理的条目键
// 可能在工作协程中被调用，实现需自行转回界面线程。
type ProgressCallback func(current, total int64, name string)

// ProgressReporter 进度报告器接口
type ProgressReporter interface {
	// OnEntryProgress 报告条目进度
	OnEntryProgress(current, total int64, name string)
}

// SimpleProgressReporter 简单进度报告器
// 丢弃回退的进度，保证同一操作内 current 单调不减。
type SimpleProgressReporter struct {
	callback ProgressCallback
	last     int64
}

// NewSimpleProgressReporter 创建简单进度报告器
func NewSimpleProgressReporter(callback ProgressCallback) *SimpleProgressReporter {
	return &SimpleProgressReporter{
		callback: callback,
		last:     -1,
	}
}

// OnEntryProgress 报告条目进度
func (r *SimpleProgressReporter) OnEntryProgress(current, total int64, name string) {
	if r == nil || r.callback == nil {
		return
	}
	if current < r.last {
		return
	}
	r.last = current
	r.callback(current, total, name)
}
