package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	yamlv2 "gopkg.in/yaml.v2"
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
}

func (k KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is a YAML or JSON file of settings keyed by flag name, plus named connections.
// The file is read on first use. A missing file behaves like an empty one.
type File struct {
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	mu           sync.Mutex
}

// NewFile returns a File for path; a leading ~ is expanded to the home directory.
func NewFile(path string) (*File, error) {
	p, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	return &File{FullPath: p, data: make(map[string]interface{})}, nil
}

// Get will fetch the key from the config File into variable, out.
// Values are converted weakly, so a number in the file can be read into a string and vice versa.
// Return a KeyNotFoundError if we can't find the key.
func (c *File) Get(key string, out interface{}) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	d, ok := c.data[key]
	c.mu.Unlock()
	if !ok { // if the key was not found...
		return KeyNotFoundError{c.FullPath, key}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err = dec.Decode(d); err != nil {
		return errors.Wrapf(err, "error decoding key %q in config file %q", key, c.FullPath)
	}
	return nil
}

// Set saves key with val, creating the file and its directory if required.
func (c *File) Set(key string, val interface{}) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
	return c.save()
}

// Delete removes key from the file.
func (c *File) Delete(key string) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, keyExists := c.data[key]; !keyExists {
		return KeyNotFoundError{c.FullPath, key}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the sorted keys in the file.
func (c *File) GetAllKeys() ([]string, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

func (c *File) ensureLoaded() error {
	err := c.loadData()
	if err != nil && !errors.As(err, &FileNotFoundError{}) { // if the error is not a missing file...
		return err
	}
	return nil
}

func (c *File) loadData() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataIsLoaded {
		return nil
	}
	c.dataIsLoaded = true // a missing file is loaded as empty
	if !fileExists(c.FullPath) {
		return FileNotFoundError{c.FullPath}
	}
	b, err := ioutil.ReadFile(c.FullPath)
	if err != nil {
		return err
	}
	// Convert YAML, or JSON which is valid YAML, into JSON so values have plain Go types.
	j, err := yaml.YAMLToJSON(b)
	if err != nil {
		return errors.Wrapf(err, "error parsing config file %q", c.FullPath)
	}
	data := make(map[string]interface{})
	if err = json.Unmarshal(j, &data); err != nil {
		return errors.Wrapf(err, "config file %q must hold a map of settings", c.FullPath)
	}
	c.data = data
	return nil
}

// save writes c.data as YAML; the caller holds the lock.
func (c *File) save() error {
	b, err := yamlv2.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("error marshalling data while writing config file %v: %v", c.FullPath, err)
	}
	if err = makeDir(filepath.Dir(c.FullPath)); err != nil {
		return err
	}
	return ioutil.WriteFile(c.FullPath, b, 0600)
}
