package connstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/secrets"
)

// Persisted-store field names shared between save and load.
const (
	keyConfigType        = "config_type"
	keyCreatedAt         = "created_at"
	keyUpdatedAt         = "updated_at"
	keyPassword          = "password"
	keyPasswordEncrypted = "password_encrypted"
	keyAPIKey            = "api_key"
	keyAPIKeyEncrypted   = "api_key_encrypted"
)

// Manager persists connection configs (secrets encrypted) and matching
// settings as JSON files, with timestamped backups. A single instance owns
// its store files; the mutex serializes the read-modify-write cycles.
type Manager struct {
	mu sync.Mutex

	connectionsPath string
	settingsPath    string
	backupDir       string
	cipher          *secrets.Cipher
	defaults        internal.MatchingSettings
	log             *logrus.Logger
}

func NewManager(cfg config.Config) (*Manager, error) {
	if err := cfg.Require("INVMATCH_MASTER_KEY", cfg.MasterKey); err != nil {
		return nil, &internal.ConfigError{Msg: "credential store needs a master key", Err: err}
	}
	cipher, err := secrets.NewCipher(cfg.MasterKey, cfg.EncryptionSalt)
	if err != nil {
		return nil, &internal.ConfigError{Msg: "building credential cipher", Err: err}
	}
	defaults := internal.DefaultMatchingSettings()
	if cfg.FuzzyThreshold > 0 {
		defaults.FuzzyThreshold = cfg.FuzzyThreshold
	}
	if cfg.DateToleranceDays > 0 {
		defaults.DateToleranceDays = cfg.DateToleranceDays
	}
	if cfg.AmountTolerancePct > 0 {
		defaults.AmountTolerancePct = cfg.AmountTolerancePct
	}

	return &Manager{
		connectionsPath: cfg.ConnectionsPath,
		settingsPath:    cfg.SettingsPath,
		backupDir:       cfg.BackupDir,
		cipher:          cipher,
		defaults:        defaults,
		log:             config.GetLogger(),
	}, nil
}

// SaveConnection serializes the config, encrypts its secret field, stamps
// timestamps, and writes it keyed by connection id. Saving an existing id
// overwrites it but preserves created_at.
func (m *Manager) SaveConnection(cfg internal.ConnectionConfig) error {
	id := cfg.ID()
	if id == "" {
		return &internal.ConfigError{Msg: "connection config has no connection_id"}
	}

	entry, err := configToMap(cfg)
	if err != nil {
		return err
	}
	entry[keyConfigType] = cfg.Type()

	secretKey, encryptedFlag := secretField(cfg.Type())
	if raw, ok := entry[secretKey].(string); ok && raw != "" {
		sealed, err := m.cipher.Encrypt(raw)
		if err != nil {
			return &internal.ConfigError{Msg: "encrypting credential for " + id, Err: err}
		}
		entry[secretKey] = sealed
		entry[encryptedFlag] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conns, err := m.readConnections()
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	if existing, ok := conns[id]; ok {
		if created, ok := existing[keyCreatedAt]; ok {
			entry[keyCreatedAt] = created
		}
	}
	if _, ok := entry[keyCreatedAt]; !ok {
		entry[keyCreatedAt] = now
	}
	entry[keyUpdatedAt] = now

	conns[id] = entry
	return m.writeConnections(conns)
}

// LoadConnection returns the decrypted config for the id. Entries whose
// encrypted flag is unset are passed through as plaintext for backward
// compatibility with stores written before encryption existed.
func (m *Manager) LoadConnection(id string) (internal.ConnectionConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, err := m.readConnections()
	if err != nil {
		return internal.ConnectionConfig{}, err
	}
	entry, ok := conns[id]
	if !ok {
		return internal.ConnectionConfig{}, &internal.ConfigError{Msg: "unknown connection: " + id}
	}
	return m.entryToConfig(id, entry)
}

func (m *Manager) entryToConfig(id string, entry map[string]any) (internal.ConnectionConfig, error) {
	configType, _ := entry[keyConfigType].(string)

	secretKey, encryptedFlag := secretField(configType)
	if flagged, _ := entry[encryptedFlag].(bool); flagged {
		sealed, _ := entry[secretKey].(string)
		plain, err := m.cipher.Decrypt(sealed)
		if err != nil {
			return internal.ConnectionConfig{}, &internal.ConfigError{Msg: "decrypting credential for " + id, Err: err}
		}
		entry = cloneEntry(entry)
		entry[secretKey] = plain
	}

	switch configType {
	case internal.ConfigTypeSQL:
		var cfg internal.SQLConnectionConfig
		if err := mapToConfig(entry, &cfg); err != nil {
			return internal.ConnectionConfig{}, err
		}
		return internal.ConnectionConfig{SQL: &cfg}, nil
	case internal.ConfigTypeAPI:
		var cfg internal.APIConnectionConfig
		if err := mapToConfig(entry, &cfg); err != nil {
			return internal.ConnectionConfig{}, err
		}
		return internal.ConnectionConfig{API: &cfg}, nil
	default:
		return internal.ConnectionConfig{}, &internal.ConfigError{Msg: fmt.Sprintf("connection %s has unknown config_type %q", id, configType)}
	}
}

// DeleteConnection removes the entry after taking an automatic backup of
// the whole store.
func (m *Manager) DeleteConnection(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, err := m.readConnections()
	if err != nil {
		return err
	}
	if _, ok := conns[id]; !ok {
		return &internal.ConfigError{Msg: "unknown connection: " + id}
	}

	if _, err := m.createBackupLocked("pre_delete_" + id); err != nil {
		return err
	}

	delete(conns, id)
	return m.writeConnections(conns)
}

// ConnectionSummary is the secret-free listing form of a stored connection.
type ConnectionSummary struct {
	ConnectionID string `json:"connection_id"`
	ConfigType   string `json:"config_type"`
	Target       string `json:"target"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

func (m *Manager) ListConnections() ([]ConnectionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, err := m.readConnections()
	if err != nil {
		return nil, err
	}

	out := make([]ConnectionSummary, 0, len(conns))
	for id, entry := range conns {
		summary := ConnectionSummary{
			ConnectionID: id,
			ConfigType:   stringField(entry, keyConfigType),
			CreatedAt:    intField(entry, keyCreatedAt),
			UpdatedAt:    intField(entry, keyUpdatedAt),
		}
		switch summary.ConfigType {
		case internal.ConfigTypeSQL:
			summary.Target = fmt.Sprintf("%s:%v/%s", stringField(entry, "host"), entry["port"], stringField(entry, "database"))
		case internal.ConfigTypeAPI:
			summary.Target = stringField(entry, "base_url")
		}
		out = append(out, summary)
	}
	return out, nil
}

// LoadSettings returns the persisted matching settings, or the env-seeded
// defaults when none were saved yet.
func (m *Manager) LoadSettings() (internal.MatchingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readSettings()
}

func (m *Manager) SaveSettings(settings internal.MatchingSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings.UpdatedAt = time.Now().Unix()
	return writeJSON(m.settingsPath, settings)
}

// backupFile is the on-disk backup shape: the full connections map plus the
// matching settings at the time of the snapshot.
type backupFile struct {
	CreatedAt   int64                     `json:"created_at"`
	Connections map[string]map[string]any `json:"connections"`
	Settings    internal.MatchingSettings `json:"settings"`
}

// CreateBackup snapshots connections and settings into the backup
// directory, named by the label or a generated timestamped name.
func (m *Manager) CreateBackup(label string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBackupLocked(label)
}

func (m *Manager) createBackupLocked(label string) (string, error) {
	conns, err := m.readConnections()
	if err != nil {
		return "", err
	}
	settings, err := m.readSettings()
	if err != nil {
		return "", err
	}

	if label == "" {
		label = "backup"
	}
	name := fmt.Sprintf("%s_%s_%s.json",
		label,
		time.Now().UTC().Format("20060102T150405Z"),
		uuid.NewString()[:8])
	path := filepath.Join(m.backupDir, name)

	backup := backupFile{CreatedAt: time.Now().Unix(), Connections: conns, Settings: settings}
	if err := writeJSON(path, backup); err != nil {
		return "", err
	}

	m.log.WithFields(logrus.Fields{"module": "connstore", "backup": path}).Info("backup created")
	return path, nil
}

// RestoreBackup replaces the store with the backup's contents, taking a
// pre-restore backup first so the restore itself is undoable.
func (m *Manager) RestoreBackup(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return &internal.ConfigError{Msg: "reading backup " + path, Err: err}
	}
	var backup backupFile
	if err := json.Unmarshal(raw, &backup); err != nil {
		return &internal.ConfigError{Msg: "backup file is corrupt: " + path, Err: err}
	}

	if _, err := m.createBackupLocked("pre_restore"); err != nil {
		return err
	}

	if backup.Connections == nil {
		backup.Connections = map[string]map[string]any{}
	}
	if err := m.writeConnections(backup.Connections); err != nil {
		return err
	}
	return writeJSON(m.settingsPath, backup.Settings)
}

func (m *Manager) readConnections() (map[string]map[string]any, error) {
	raw, err := os.ReadFile(m.connectionsPath)
	if os.IsNotExist(err) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	conns := map[string]map[string]any{}
	if err := json.Unmarshal(raw, &conns); err != nil {
		return nil, &internal.ConfigError{Msg: "connections store is corrupt", Err: err}
	}
	return conns, nil
}

func (m *Manager) writeConnections(conns map[string]map[string]any) error {
	return writeJSON(m.connectionsPath, conns)
}

func (m *Manager) readSettings() (internal.MatchingSettings, error) {
	raw, err := os.ReadFile(m.settingsPath)
	if os.IsNotExist(err) {
		return m.defaults, nil
	}
	if err != nil {
		return internal.MatchingSettings{}, err
	}

	var settings internal.MatchingSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return internal.MatchingSettings{}, &internal.ConfigError{Msg: "settings store is corrupt", Err: err}
	}
	return settings, nil
}

func secretField(configType string) (string, string) {
	if configType == internal.ConfigTypeAPI {
		return keyAPIKey, keyAPIKeyEncrypted
	}
	return keyPassword, keyPasswordEncrypted
}

func configToMap(cfg internal.ConnectionConfig) (map[string]any, error) {
	var src any
	if cfg.SQL != nil {
		src = cfg.SQL
	} else if cfg.API != nil {
		src = cfg.API
	} else {
		return nil, &internal.ConfigError{Msg: "connection config has no variant set"}
	}

	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mapToConfig(entry map[string]any, dst any) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func cloneEntry(entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out
}

func stringField(entry map[string]any, key string) string {
	s, _ := entry[key].(string)
	return s
}

func intField(entry map[string]any, key string) int64 {
	switch v := entry[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
