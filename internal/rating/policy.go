package rating

import (
	"campus-audit/internal/models"
)

// FailedCheck 一次失败的检查及其评级相关元数据
type FailedCheck struct {
	CheckID           string
	InstantRed        bool
	ZoneID            string
	ZoneAmberEligible bool
}

// VetoFunc 类别级否决判定：命中任一失败检查即强制 RED
type VetoFunc func(FailedCheck) bool

// Policy 评级策略
// 三类巡检共用同一个两段过滤：先问"有没有类别级否决"
// （不可 AMBER 区域的缺陷 / instant-red 检查 / 明确的 not-ready），
// 再问"缺陷总数是否越过 AMBER 阈值"。各家族只差否决谓词和阈值，
// 统一在这里参数化，避免多份手抄的 calculateStatus 渐渐跑偏
type Policy struct {
	Name                string
	AmberThreshold      int
	HasTerminalQuestion bool
	Veto                VetoFunc
}

// Input 评级输入
// TerminalReady 为终审 "tour ready" 回答；无终审问题的家族忽略该字段
type Input struct {
	Failed        []FailedCheck
	TerminalReady *bool
}

// Evaluate 计算评级，纯函数，永不出错
// 零条失败、无否决时确定性地给 GREEN；输入完整性由调用方在提交前单独把关
func (p Policy) Evaluate(in Input) models.Rating {
	// 终审否决盖过一切（包括零缺陷）
	if p.HasTerminalQuestion && in.TerminalReady != nil && !*in.TerminalReady {
		return models.RatingRed
	}

	if p.Veto != nil && anyFailed(in.Failed, p.Veto) {
		return models.RatingRed
	}

	switch n := len(in.Failed); {
	case n == 0:
		return models.RatingGreen
	case n <= p.AmberThreshold:
		return models.RatingAmber
	default:
		return models.RatingRed
	}
}

// WalkthroughPolicy 常规区域巡检策略
// 否决：失败检查落在 amber_eligible=false 的区域；阈值固定 1；有终审问题
func WalkthroughPolicy() Policy {
	return Policy{
		Name:                "walkthrough",
		AmberThreshold:      1,
		HasTerminalQuestion: true,
		Veto: func(f FailedCheck) bool {
			return !f.ZoneAmberEligible
		},
	}
}

// CleanlinessPolicy 保洁巡检策略
// 否决：instant-red 检查；阈值可配（通常 1）；有终审问题
func CleanlinessPolicy(amberThreshold int) Policy {
	return Policy{
		Name:                "cleanliness",
		AmberThreshold:      amberThreshold,
		HasTerminalQuestion: true,
		Veto: func(f FailedCheck) bool {
			return f.InstantRed
		},
	}
}

// FurniturePolicy 家具/设施周期巡检策略
// 与保洁策略同形，但没有终审问题，评级只由失败检查本身决定
func FurniturePolicy(amberThreshold int) Policy {
	return Policy{
		Name:                "furniture",
		AmberThreshold:      amberThreshold,
		HasTerminalQuestion: false,
		Veto: func(f FailedCheck) bool {
			return f.InstantRed
		},
	}
}

// PolicyFor 按巡检家族取策略
func PolicyFor(family models.AuditFamily, amberThreshold int) Policy {
	switch family {
	case models.FamilyCleanliness:
		return CleanlinessPolicy(amberThreshold)
	case models.FamilyFurniture:
		return FurniturePolicy(amberThreshold)
	default:
		return WalkthroughPolicy()
	}
}

// CollectFailed 从答题结果 + 活动区域集收集失败检查（共享辅助，三个策略共用）
// 只统计能在活动区域里找到定义的 check_id
func CollectFailed(results map[string]bool, zones []*models.Zone) []FailedCheck {
	var failed []FailedCheck
	for _, zone := range zones {
		for _, chk := range zone.Checks() {
			passed, answered := results[chk.CheckID]
			if !answered || passed {
				continue
			}
			failed = append(failed, FailedCheck{
				CheckID:           chk.CheckID,
				InstantRed:        chk.InstantRed,
				ZoneID:            zone.ZoneID,
				ZoneAmberEligible: zone.AmberEligible,
			})
		}
	}
	return failed
}

func anyFailed(failed []FailedCheck, pred VetoFunc) bool {
	for _, f := range failed {
		if pred(f) {
			return true
		}
	}
	return false
}
