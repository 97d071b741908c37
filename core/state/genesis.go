package state

var genesisMarkerKey = []byte("genesis/applied")

// GenesisApplied reports whether initial balances were already written.
func (m *Manager) GenesisApplied() (bool, error) {
	data, err := m.get(genesisMarkerKey)
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

// MarkGenesisApplied records that initial balances were written so a
// restart never re-credits them.
func (m *Manager) MarkGenesisApplied() error {
	return m.put(genesisMarkerKey, []byte{1})
}
