package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ClientState es el estado local del cliente: puntero a la sesión activa y
// el último set de confirmaciones usado. Se inicializa al abrir una sesión y
// se limpia al cerrarla, borrarla o al vaciarse por delete del último trade.
//
// Si path está vacío el estado vive solo en memoria.
type ClientState struct {
	mu                sync.Mutex
	path              string
	activeSessionID   string
	lastConfirmations []string
}

type stateFile struct {
	ActiveSessionID   string   `yaml:"active_session_id,omitempty"`
	LastConfirmations []string `yaml:"last_confirmations,omitempty"`
}

// NewClientState crea un estado en memoria.
func NewClientState() *ClientState {
	return &ClientState{}
}

// LoadClientState lee el estado desde un archivo YAML. Si no existe,
// devuelve un estado vacío que se guardará en esa ruta.
func LoadClientState(path string) (*ClientState, error) {
	st := &ClientState{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal.LoadClientState: read %q: %w", path, err)
	}

	var f stateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("journal.LoadClientState: parse %q: %w", path, err)
	}
	st.activeSessionID = f.ActiveSessionID
	st.lastConfirmations = f.LastConfirmations
	return st, nil
}

// ActiveSessionID devuelve la sesión activa o "" si no hay.
func (s *ClientState) ActiveSessionID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSessionID
}

// LastConfirmations devuelve una copia del último set de confirmaciones.
func (s *ClientState) LastConfirmations() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lastConfirmations...)
}

// IsActive indica si sessionID es la sesión activa del cliente.
func (s *ClientState) IsActive(sessionID string) bool {
	return sessionID != "" && s.ActiveSessionID() == sessionID
}

// Begin apunta el estado a una sesión recién abierta.
func (s *ClientState) Begin(sessionID string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.activeSessionID = sessionID
	s.lastConfirmations = nil
	s.mu.Unlock()
	return s.save()
}

// RememberConfirmations guarda el último set de confirmaciones usado.
func (s *ClientState) RememberConfirmations(confs []string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.lastConfirmations = append([]string(nil), confs...)
	s.mu.Unlock()
	return s.save()
}

// Clear limpia el estado (fin de sesión, borrado o fin implícito).
func (s *ClientState) Clear() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.activeSessionID = ""
	s.lastConfirmations = nil
	s.mu.Unlock()
	return s.save()
}

func (s *ClientState) save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	f := stateFile{ActiveSessionID: s.activeSessionID, LastConfirmations: s.lastConfirmations}
	s.mu.Unlock()

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("journal.ClientState: marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("journal.ClientState: mkdir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("journal.ClientState: write %q: %w", s.path, err)
	}
	return nil
}
