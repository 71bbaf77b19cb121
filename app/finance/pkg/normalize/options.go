// Package normalize 把不可靠的 LLM 文本输出归一化为结构完整、数值自洽的结果。
//
// 流程分三段：Extract 尽力从文本中取出字段；Validator 钳制分数、重算配置比例、
// 约束应急金；当抽取不到任何可用字段时，由 Fallback 按规则合成确定性的结果。
// 包内没有任何共享可变状态，可被并发调用。
package normalize

// Options 归一化参数，零值字段在 withDefaults 中补齐
type Options struct {
	// AllocationTolerance 配置比例之和允许偏离 100 的幅度，超出时产生诊断信息
	AllocationTolerance float64 `yaml:"allocation_tolerance" json:"allocation_tolerance"`
	// EmergencyMinMonths / EmergencyMaxMonths 应急金相对月支出的上下限倍数
	EmergencyMinMonths float64 `yaml:"emergency_min_months" json:"emergency_min_months"`
	EmergencyMaxMonths float64 `yaml:"emergency_max_months" json:"emergency_max_months"`
	// EmergencyDefaultMonths 缺省应急金 = 月支出 × 该倍数
	EmergencyDefaultMonths float64 `yaml:"emergency_default_months" json:"emergency_default_months"`
	// ExpenseEstimate 月支出未知时使用的估计值
	ExpenseEstimate float64 `yaml:"expense_estimate" json:"expense_estimate"`
	// SavingsRate 规则策略使用的储蓄率
	SavingsRate float64 `yaml:"savings_rate" json:"savings_rate"`
	// ListCap 模式抽取时每个列表最多保留的条目数
	ListCap int `yaml:"list_cap" json:"list_cap"`
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		AllocationTolerance:    1.0,
		EmergencyMinMonths:     3,
		EmergencyMaxMonths:     12,
		EmergencyDefaultMonths: 6,
		ExpenseEstimate:        3000,
		SavingsRate:            0.15,
		ListCap:                5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AllocationTolerance <= 0 {
		o.AllocationTolerance = d.AllocationTolerance
	}
	if o.EmergencyMinMonths <= 0 {
		o.EmergencyMinMonths = d.EmergencyMinMonths
	}
	if o.EmergencyMaxMonths < o.EmergencyMinMonths {
		o.EmergencyMaxMonths = d.EmergencyMaxMonths
		if o.EmergencyMaxMonths < o.EmergencyMinMonths {
			o.EmergencyMaxMonths = o.EmergencyMinMonths
		}
	}
	if o.EmergencyDefaultMonths <= 0 {
		o.EmergencyDefaultMonths = d.EmergencyDefaultMonths
	}
	if o.ExpenseEstimate <= 0 {
		o.ExpenseEstimate = d.ExpenseEstimate
	}
	if o.SavingsRate <= 0 {
		o.SavingsRate = d.SavingsRate
	}
	if o.ListCap <= 0 {
		o.ListCap = d.ListCap
	}
	return o
}
