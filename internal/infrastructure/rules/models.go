// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package rules

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// actionRedirect is the only action type this tool creates.
const actionRedirect = "redirect"

// Action is what a rule does with a matching message.
type Action struct {
	Type     string `json:"type"`
	To       string `json:"to,omitempty"`
	KeepCopy bool   `json:"keepCopy"`
}

// CreateRuleRequest is the body of POST /rules.
type CreateRuleRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Action  Action `json:"action"`
}

// Rule is a filter rule as returned by the API.
type Rule struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Action  Action `json:"action"`
}

// parseRules reads the "rules" array of a list response.
func parseRules(body string) []Rule {
	var rules []Rule
	for _, r := range gjson.Get(body, "rules").Array() {
		rules = append(rules, Rule{
			ID:      r.Get("id").String(),
			Name:    r.Get("name").String(),
			Enabled: r.Get("enabled").Bool(),
			Action: Action{
				Type:     r.Get("action.type").String(),
				To:       r.Get("action.to").String(),
				KeepCopy: r.Get("action.keepCopy").Bool(),
			},
		})
	}
	return rules
}

// managedAddress returns the address a managed rule forwards to. The rule
// name carries it after the prefix; the redirect target is used when the
// name does not hold a valid address.
func managedAddress(r Rule, prefix string) (model.EmailAddress, bool) {
	if !strings.HasPrefix(r.Name, prefix) {
		return "", false
	}
	if e := model.NormalizeEmail(strings.TrimPrefix(r.Name, prefix)); e.Valid() {
		return e, true
	}
	if strings.EqualFold(r.Action.Type, actionRedirect) {
		if e := model.NormalizeEmail(r.Action.To); e.Valid() {
			return e, true
		}
	}
	return "", false
}
