package domain

import "time"

// HTTPItemType — какую метрику принимает элемент данных веб-мониторинга.
type HTTPItemType int

const (
	// Метрики шага.
	ItemTypeRspCode HTTPItemType = 0
	ItemTypeTime    HTTPItemType = 1
	ItemTypeSpeed   HTTPItemType = 2

	// Метрики сценария (ItemTypeSpeed используется и для средней скорости).
	ItemTypeLastStep  HTTPItemType = 3
	ItemTypeLastError HTTPItemType = 4
)

// ValueType — тип значения элемента данных.
type ValueType int

const (
	ValueTypeFloat ValueType = 0
	ValueTypeStr   ValueType = 1
	ValueTypeLog   ValueType = 2
	ValueTypeUint  ValueType = 3
	ValueTypeText  ValueType = 4
)

// HTTPItem — элемент данных, привязанный к сценарию или шагу,
// вместе со статусом хоста на момент загрузки.
type HTTPItem struct {
	ItemID    int64        `json:"item_id"`
	HostID    int64        `json:"host_id"`
	Type      HTTPItemType `json:"type"`
	ValueType ValueType    `json:"value_type"`
	Status    ItemStatus   `json:"status"`

	HostStatus        HostStatus        `json:"host_status"`
	MaintenanceStatus MaintenanceStatus `json:"maintenance_status"`
	MaintenanceType   MaintenanceType   `json:"maintenance_type"`
}

// Reportable проверяет, можно ли отправлять значение в элемент:
// элемент активен, хост мониторится и не находится в обслуживании без сбора данных.
func (i HTTPItem) Reportable() bool {
	if i.Status != ItemActive {
		return false
	}
	if i.HostStatus != HostMonitored {
		return false
	}
	if i.MaintenanceStatus == MaintenanceOn && i.MaintenanceType == MaintenanceNoData {
		return false
	}
	return true
}

// MetricValue — одно значение для отправки в конвейер метрик.
//
// Value — uint64, float64 или string в зависимости от типа элемента.
type MetricValue struct {
	ItemID    int64     `json:"item_id"`
	HostID    int64     `json:"host_id"`
	ValueType ValueType `json:"value_type"`
	Timestamp time.Time `json:"timestamp"`
	Value     any       `json:"value"`
}
