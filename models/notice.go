package models

import "time"

// CartNotice is the message fanned out to sibling gateway instances when the
// locally persisted cart changes. Instances use the instance ID to ignore
// their own notices.
type CartNotice struct {
	InstanceID string    `json:"instanceId"`
	Key        string    `json:"key"`
	ChangedAt  time.Time `json:"changedAt"`
}
