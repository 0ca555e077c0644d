package domain

// SubsystemID identifies one of the independently gated admin areas of the
// migration suite. Each subsystem has its own credential, its own session
// flag and its own configuration directory.
type SubsystemID string

const (
	SubsystemEmployee   SubsystemID = "employee"
	SubsystemFoundation SubsystemID = "foundation"
	SubsystemPayroll    SubsystemID = "payroll"
)

// AllSubsystems returns every known subsystem in a stable order.
func AllSubsystems() []SubsystemID {
	return []SubsystemID{SubsystemEmployee, SubsystemFoundation, SubsystemPayroll}
}

// Valid reports whether the ID names a known subsystem.
func (s SubsystemID) Valid() bool {
	switch s {
	case SubsystemEmployee, SubsystemFoundation, SubsystemPayroll:
		return true
	}
	return false
}

// DisplayName returns the human-facing name shown in admin screens.
func (s SubsystemID) DisplayName() string {
	switch s {
	case SubsystemEmployee:
		return "Employee Data Management"
	case SubsystemFoundation:
		return "Foundation Data Management"
	case SubsystemPayroll:
		return "Payroll Data Management"
	}
	return string(s)
}

// ConfigDirName returns the name of the directory holding the subsystem's
// configuration documents, e.g. "foundation_configs".
func (s SubsystemID) ConfigDirName() string {
	return string(s) + "_configs"
}

// PasswordKey returns the secret-source key holding the subsystem's admin
// password, e.g. "payroll_admin_password".
func (s SubsystemID) PasswordKey() string {
	return string(s) + "_admin_password"
}

// ExpectedCategories returns the configuration categories a fully configured
// subsystem is expected to carry. Used for status reporting only; the config
// store itself accepts any category name.
func (s SubsystemID) ExpectedCategories() []string {
	switch s {
	case SubsystemFoundation:
		return []string{"hierarchy_rules", "validation_rules", "processing_settings"}
	case SubsystemPayroll:
		return []string{"wage_types", "validation_rules", "processing_settings"}
	case SubsystemEmployee:
		return []string{"defaults", "validation_rules", "processing_settings"}
	}
	return nil
}
