package model

// Secret holds sensitive credential material (SNMP community strings,
// SNMPv3 auth/priv keys, vendor API tokens) sealed at rest. The zero
// value is an empty, unset secret.
type Secret []byte

// IsSet reports whether the secret carries any sealed material.
func (s Secret) IsSet() bool {
	return len(s) > 0
}
