package model

// Focus 爵士练习课程（JPC）中的一个专题单元，按 SortOrder 排序。
// 目录数据只读，ID 只作身份标识，顺序一律以 SortOrder 为准。
// swagger:model Focus
type Focus struct {
	BaseModel
	SortOrder float64 `gorm:"column:sort_order;index;not null" json:"order"`
	Title     string  `gorm:"size:200;not null" json:"title"`
	Pillar    string  `gorm:"size:100" json:"pillar"`
	Element   string  `gorm:"size:100" json:"element"`
	Tempo     string  `gorm:"size:50" json:"tempo"`
}

func (Focus) TableName() string {
	return "focuses"
}

// KeysPerFocus 每个Focus固定12个调
const KeysPerFocus = 12

// KeyNames 十二个调的固定顺序（四度圈）
var KeyNames = [KeysPerFocus]string{
	"C", "F", "Bb", "Eb", "Ab", "Db", "Gb", "B", "E", "A", "D", "G",
}

// Step 一个Focus在某个调上的练习步骤，key_index 1..12。
// swagger:model Step
type Step struct {
	BaseModel
	FocusID  uint   `gorm:"index:idx_focus_key,unique;not null" json:"focusId"`
	KeyIndex int    `gorm:"index:idx_focus_key,unique;not null" json:"keyIndex"`
	KeyName  string `gorm:"size:10;not null" json:"keyName"`
	VideoRef string `gorm:"size:255" json:"videoRef"`
}

func (Step) TableName() string {
	return "steps"
}

// GlobalOrdinal 跨整个课程的全局序号，用于定位最早未完成的步骤（frontier）。
// focusOrder 从1开始计数。
func GlobalOrdinal(focusOrder int, keyIndex int) int {
	return (focusOrder-1)*KeysPerFocus + keyIndex
}
