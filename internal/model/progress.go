package model

// ProgressRecord 记录用户在某个Focus下12个调各自的完成情况。
// StepN 为空表示该调未完成，非空时存放完成时对应的 step_id。
// (user_id, focus_id) 唯一。
// swagger:model ProgressRecord
type ProgressRecord struct {
	BaseModel
	UserID  uint  `gorm:"index:idx_user_focus,unique;not null" json:"userId"`
	FocusID uint  `gorm:"index:idx_user_focus,unique;not null" json:"focusId"`
	Step1   *uint `json:"step1"`
	Step2   *uint `json:"step2"`
	Step3   *uint `json:"step3"`
	Step4   *uint `json:"step4"`
	Step5   *uint `json:"step5"`
	Step6   *uint `json:"step6"`
	Step7   *uint `json:"step7"`
	Step8   *uint `json:"step8"`
	Step9   *uint `json:"step9"`
	Step10  *uint `json:"step10"`
	Step11  *uint `json:"step11"`
	Step12  *uint `json:"step12"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

// Slot 读取第 keyIndex 个调的完成记录，keyIndex 越界时返回 nil。
func (p *ProgressRecord) Slot(keyIndex int) *uint {
	switch keyIndex {
	case 1:
		return p.Step1
	case 2:
		return p.Step2
	case 3:
		return p.Step3
	case 4:
		return p.Step4
	case 5:
		return p.Step5
	case 6:
		return p.Step6
	case 7:
		return p.Step7
	case 8:
		return p.Step8
	case 9:
		return p.Step9
	case 10:
		return p.Step10
	case 11:
		return p.Step11
	case 12:
		return p.Step12
	}
	return nil
}

// SetSlot 写入第 keyIndex 个调的完成记录
func (p *ProgressRecord) SetSlot(keyIndex int, stepID *uint) {
	switch keyIndex {
	case 1:
		p.Step1 = stepID
	case 2:
		p.Step2 = stepID
	case 3:
		p.Step3 = stepID
	case 4:
		p.Step4 = stepID
	case 5:
		p.Step5 = stepID
	case 6:
		p.Step6 = stepID
	case 7:
		p.Step7 = stepID
	case 8:
		p.Step8 = stepID
	case 9:
		p.Step9 = stepID
	case 10:
		p.Step10 = stepID
	case 11:
		p.Step11 = stepID
	case 12:
		p.Step12 = stepID
	}
}

// KeysCompleted 已完成的调数量，0..12
func (p *ProgressRecord) KeysCompleted() int {
	count := 0
	for i := 1; i <= KeysPerFocus; i++ {
		if p.Slot(i) != nil {
			count++
		}
	}
	return count
}

// AllKeysComplete 12个调是否全部完成
func (p *ProgressRecord) AllKeysComplete() bool {
	return p.KeysCompleted() == KeysPerFocus
}
