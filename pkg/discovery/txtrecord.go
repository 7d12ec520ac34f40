package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap holds TXT record key/value pairs.
type TXTRecordMap map[string]string

// EncodeServiceTXT builds the TXT records for a reactor endpoint.
func EncodeServiceTXT(hostID string, connections int) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyVersion:     TXTVersion,
		TXTKeyConnections: strconv.Itoa(connections),
	}
	if hostID != "" {
		txt[TXTKeyHost] = hostID
	}
	return txt
}

// DecodeServiceTXT fills the TXT-derived fields of svc.
func DecodeServiceTXT(txt TXTRecordMap, svc *Service) error {
	svc.Version = txt[TXTKeyVersion]
	svc.HostID = txt[TXTKeyHost]
	if v, ok := txt[TXTKeyConnections]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s record %q: %w", TXTKeyConnections, v, err)
		}
		svc.Connections = n
	}
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings in key
// order.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(txt))
	for _, k := range keys {
		result = append(result, fmt.Sprintf("%s=%s", k, txt[k]))
	}
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, found := strings.Cut(s, "=")
		if key == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			value = ""
		}
		txt[key] = value
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
