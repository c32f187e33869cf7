// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package easyverein

import (
	"github.com/tidwall/gjson"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// memberQuery selects the member fields the synchronizer needs.
const memberQuery = "{id,membershipNumber,resignationDate,contactDetails{firstName,familyName,privateEmail,companyEmail}}"

// member is the subset of an easyVerein member record we read.
type member struct {
	ID               int64
	MembershipNumber string
	Resigned         bool
	FirstName        string
	FamilyName       string
	PrivateEmail     string
	CompanyEmail     string
}

// parseMember extracts a member from one element of a "results" array.
// contactDetails may be null or an unexpanded URL; both yield empty contact fields.
func parseMember(r gjson.Result) member {
	contact := r.Get("contactDetails")
	resignation := r.Get("resignationDate")
	return member{
		ID:               r.Get("id").Int(),
		MembershipNumber: r.Get("membershipNumber").String(),
		Resigned:         resignation.Exists() && resignation.Type != gjson.Null && resignation.String() != "",
		FirstName:        contact.Get("firstName").String(),
		FamilyName:       contact.Get("familyName").String(),
		PrivateEmail:     contact.Get("privateEmail").String(),
		CompanyEmail:     contact.Get("companyEmail").String(),
	}
}

// email returns the private address, falling back to the company address.
func (m member) email() string {
	if m.PrivateEmail != "" {
		return m.PrivateEmail
	}
	return m.CompanyEmail
}

func (m member) record() model.MemberRecord {
	return model.MemberRecord{
		ID:               m.ID,
		Email:            model.NormalizeEmail(m.email()),
		FirstName:        optional(m.FirstName),
		LastName:         optional(m.FamilyName),
		MembershipNumber: optional(m.MembershipNumber),
		Active:           !m.Resigned,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
