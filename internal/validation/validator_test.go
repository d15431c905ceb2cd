// Showdex - Local-First TV Show Browser Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showdex

package validation

import (
	"strings"
	"testing"
)

type searchRequest struct {
	Query string `validate:"required,min=1,max=10"`
	Mode  string `validate:"omitempty,oneof=memory local api"`
}

type pageRequest struct {
	Page int `validate:"min=0,max=500"`
}

func TestValidateStruct_Passes(t *testing.T) {
	req := searchRequest{Query: "girls", Mode: "local"}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("Expected valid struct, got %v", err)
	}
}

func TestValidateStruct_OmitemptySkipsEmptyMode(t *testing.T) {
	req := searchRequest{Query: "girls"}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("Expected valid struct with empty mode, got %v", err)
	}
}

func TestValidateStruct_RequiredField(t *testing.T) {
	req := searchRequest{Mode: "api"}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("Expected validation error for missing query")
	}

	errs := err.Errors()
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if errs[0].Field() != "Query" || errs[0].Tag() != "required" {
		t.Errorf("Wrong field/tag: %s/%s", errs[0].Field(), errs[0].Tag())
	}
	if errs[0].Error() != "Query is required" {
		t.Errorf("Unexpected message: %q", errs[0].Error())
	}
}

func TestValidateStruct_OneofMessage(t *testing.T) {
	req := searchRequest{Query: "girls", Mode: "remote"}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("Expected validation error for bad mode")
	}
	if !strings.Contains(err.Error(), "Mode must be one of") {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestValidateStruct_NumericBounds(t *testing.T) {
	if err := ValidateStruct(&pageRequest{Page: 0}); err != nil {
		t.Errorf("Page 0 should be valid, got %v", err)
	}
	if err := ValidateStruct(&pageRequest{Page: 501}); err == nil {
		t.Error("Page 501 should fail max validation")
	}

	err := ValidateStruct(&pageRequest{Page: -1})
	if err == nil {
		t.Fatal("Page -1 should fail min validation")
	}
	if err.Error() != "Page must be at least 0" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&searchRequest{})
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Query" {
		t.Errorf("Details field = %v, want Query", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	type multi struct {
		A string `validate:"required"`
		B int    `validate:"min=5"`
	}
	err := ValidateStruct(&multi{B: 1})
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Expected fields list, got %T", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("Expected 2 field entries, got %d", len(fields))
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("Expected joined message, got %q", apiErr.Message)
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}

func TestValidateStruct_StringMaxMessage(t *testing.T) {
	err := ValidateStruct(&searchRequest{Query: "this query is far too long"})
	if err == nil {
		t.Fatal("Expected validation error for long query")
	}
	if err.Error() != "Query must be at most 10 characters" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}
