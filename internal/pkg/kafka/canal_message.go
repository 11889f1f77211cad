package kafka

import "strings"

const (
	canalInsert = "INSERT"
	canalUpdate = "UPDATE"
	canalDelete = "DELETE"
)

// CanalMessage Canal 推送到 Kafka 的行变更，只保留目录失效所需字段
type CanalMessage struct {
	ID       int64    `json:"id"`
	Database string   `json:"database"`
	Table    string   `json:"table"`
	PKNames  []string `json:"pkNames"`
	IsDDL    bool     `json:"isDdl"`
	Type     string   `json:"type"`
	ES       int64    `json:"es"`
	TS       int64    `json:"ts"`

	// Data 变更后的行
	Data []map[string]interface{} `json:"data"`

	// Old UPDATE 时被修改列的旧值，与 Data 按下标对应
	Old []map[string]interface{} `json:"old"`
}

// IsRowChange 是否为 DML 行变更
func (m *CanalMessage) IsRowChange() bool {
	if m.IsDDL {
		return false
	}
	switch strings.ToUpper(m.Type) {
	case canalInsert, canalUpdate, canalDelete:
		return true
	}
	return false
}

// OldValue 第 i 行某列的旧值，未修改时 ok 为 false
func (m *CanalMessage) OldValue(i int, column string) (interface{}, bool) {
	if i >= len(m.Old) || m.Old[i] == nil {
		return nil, false
	}
	v, ok := m.Old[i][column]
	return v, ok
}
