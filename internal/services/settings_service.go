package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/KHABI-TEQ/console-admin/internal/models"
)

const settingsCollection = "settings"

// Redis channel used to tell other instances a setting changed.
const settingsUpdateChannel = "settings_updates"

type ISettingsService interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	GetString(ctx context.Context, key string, fallback string) string
	Set(ctx context.Context, key string, value interface{}, public bool) error
	ListPublic(ctx context.Context) ([]models.SettingEntry, error)
	List(ctx context.Context) ([]models.SettingEntry, error)
	Close()
}

// settingsService serves console settings from an in-memory map, backed by
// the settings collection. A Redis pub/sub subscription invalidates the
// local copy whenever any instance writes a setting.
type settingsService struct {
	db  *mongo.Database
	rdb *redis.Client

	mu     sync.RWMutex
	values map[string]models.SettingEntry
	loaded bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSettingsService(database *mongo.Database, rdb *redis.Client) ISettingsService {
	s := &settingsService{
		db:     database,
		rdb:    rdb,
		values: make(map[string]models.SettingEntry),
		done:   make(chan struct{}),
	}
	if rdb != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.listenForUpdates(ctx)
	} else {
		close(s.done)
	}
	return s
}

func (s *settingsService) listenForUpdates(ctx context.Context) {
	defer close(s.done)
	sub := s.rdb.Subscribe(ctx, settingsUpdateChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			log.Printf("SettingsService: reloading after update to %q", msg.Payload)
			s.mu.Lock()
			s.loaded = false
			s.mu.Unlock()
		}
	}
}

func (s *settingsService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	cursor, err := s.db.Collection(settingsCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.SettingEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}

	s.mu.Lock()
	s.values = make(map[string]models.SettingEntry, len(entries))
	for _, e := range entries {
		s.values[e.Key] = e
	}
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *settingsService) Get(ctx context.Context, key string) (interface{}, bool) {
	if err := s.ensureLoaded(ctx); err != nil {
		log.Printf("SettingsService: %v", err)
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

func (s *settingsService) GetString(ctx context.Context, key string, fallback string) string {
	v, ok := s.Get(ctx, key)
	if !ok {
		return fallback
	}
	str, ok := v.(string)
	if !ok {
		return fallback
	}
	return str
}

func (s *settingsService) Set(ctx context.Context, key string, value interface{}, public bool) error {
	entry := models.SettingEntry{Key: key, Value: value, Public: public}
	_, err := s.db.Collection(settingsCollection).UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": entry},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = entry
	s.mu.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, settingsUpdateChannel, key).Err(); err != nil {
			log.Printf("SettingsService: failed to publish update for %q: %v", key, err)
		}
	}
	return nil
}

func (s *settingsService) ListPublic(ctx context.Context) ([]models.SettingEntry, error) {
	return s.list(ctx, true)
}

func (s *settingsService) List(ctx context.Context) ([]models.SettingEntry, error) {
	return s.list(ctx, false)
}

func (s *settingsService) list(ctx context.Context, publicOnly bool) ([]models.SettingEntry, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SettingEntry, 0, len(s.values))
	for _, e := range s.values {
		if publicOnly && !e.Public {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close stops the pub/sub listener. Safe to call once during shutdown.
func (s *settingsService) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}
