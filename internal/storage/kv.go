// Package storage fornece o armazenamento chave-valor persistente usado
// pelo cache de estoque/preço, pela tabela de mapeamentos e pela sessão SIGE.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound indica que a chave não existe no armazenamento
var ErrNotFound = errors.New("chave nao encontrada")

// Entry é um par chave-valor retornado por PrefixScan
type Entry struct {
	Key   string
	Value string
}

// KV é um armazenamento chave-valor sobre SQLite
type KV struct {
	conn *sql.DB
}

// Open abre (criando se preciso) o banco no caminho informado
func Open(path string) (*KV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	kv := &KV{conn: conn}
	if err := kv.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return kv, nil
}

func (k *KV) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := k.conn.Exec(schema)
	return err
}

// Close fecha a conexão com o banco
func (k *KV) Close() error {
	return k.conn.Close()
}

// Get retorna o valor da chave ou ErrNotFound
func (k *KV) Get(key string) (string, error) {
	var value string
	err := k.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set grava (ou sobrescreve) o valor da chave
func (k *KV) Set(key, value string) error {
	_, err := k.conn.Exec(`
INSERT INTO kv (key, value, updatedAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

// Delete remove a chave; remover chave inexistente não é erro
func (k *KV) Delete(key string) error {
	_, err := k.conn.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// PrefixScan retorna todas as entradas cuja chave começa com o prefixo,
// em ordem de chave
func (k *KV) PrefixScan(prefix string) ([]Entry, error) {
	rows, err := k.conn.Query(
		`SELECT key, value FROM kv WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeletePrefix remove todas as chaves com o prefixo e retorna quantas foram
func (k *KV) DeletePrefix(prefix string) (int, error) {
	res, err := k.conn.Exec(`DELETE FROM kv WHERE key LIKE ? || '%'`, prefix)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetJSON decodifica o valor JSON da chave em dest
func (k *KV) GetJSON(key string, dest any) error {
	value, err := k.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(value), dest)
}

// SetJSON serializa v como JSON e grava na chave
func (k *KV) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return k.Set(key, string(data))
}
