package types

import "sort"

// NodeState 节点对外发布的能力状态
//
// Identifiers 为币种代码到外部标识的映射，只由本节点的 gossip 更新
// 或对端的状态更新消息修改。
type NodeState struct {
	Identifiers map[string]string `json:"identifiers,omitempty"`
}

// NewNodeState 创建空状态
func NewNodeState() NodeState {
	return NodeState{Identifiers: make(map[string]string)}
}

// Get 返回币种对应的标识
func (s NodeState) Get(currency string) (string, bool) {
	id, ok := s.Identifiers[currency]
	return id, ok
}

// Clone 深拷贝
func (s NodeState) Clone() NodeState {
	out := NodeState{Identifiers: make(map[string]string, len(s.Identifiers))}
	for k, v := range s.Identifiers {
		out.Identifiers[k] = v
	}
	return out
}

// Merge 按币种覆盖合并 update，返回发生变化的币种（已排序）
func (s *NodeState) Merge(update NodeState) []string {
	if s.Identifiers == nil {
		s.Identifiers = make(map[string]string, len(update.Identifiers))
	}
	var changed []string
	for currency, id := range update.Identifiers {
		if old, ok := s.Identifiers[currency]; ok && old == id {
			continue
		}
		s.Identifiers[currency] = id
		changed = append(changed, currency)
	}
	sort.Strings(changed)
	return changed
}

// Currencies 返回已发布的币种（已排序）
func (s NodeState) Currencies() []string {
	out := make([]string, 0, len(s.Identifiers))
	for k := range s.Identifiers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
