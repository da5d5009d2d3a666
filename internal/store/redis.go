package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

const redisStationsKey = "observation:stations"

func redisLatestKey(station string) string  { return "observation:latest:" + station }
func redisHistoryKey(station string) string { return "observation:history:" + station }

// Redis keeps the latest observation of each station in a hash and the
// history in a sorted set scored by observation time.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Put(ctx context.Context, obs domain.Observation) error {
	member, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisLatestKey(obs.Station), map[string]any{
			"wmo_code":        obs.WMOCode,
			"air_temperature": strconv.FormatFloat(obs.AirTemperature, 'f', -1, 64),
			"wind_speed":      strconv.FormatFloat(obs.WindSpeed, 'f', -1, 64),
			"phenomenon":      obs.Phenomenon,
			"observed_at":     obs.ObservedAt.Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, redisHistoryKey(obs.Station), redis.Z{
			Score:  float64(obs.ObservedAt.Unix()),
			Member: string(member),
		})
		pipe.SAdd(ctx, redisStationsKey, obs.Station)
		return nil
	})
	return err
}

func (r *Redis) PutAll(ctx context.Context, obs []domain.Observation) error {
	return putEach(ctx, obs, r.Put)
}

func (r *Redis) GetLatest(ctx context.Context, station string) (domain.Observation, bool, error) {
	fields, err := r.client.HGetAll(ctx, redisLatestKey(station)).Result()
	if err != nil {
		return domain.Observation{}, false, err
	}
	if len(fields) == 0 {
		return domain.Observation{}, false, nil
	}
	obs, err := observationFromHash(station, fields)
	if err != nil {
		return domain.Observation{}, false, err
	}
	return obs, true, nil
}

func (r *Redis) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	stations, err := r.client.SMembers(ctx, redisStationsKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(stations)

	cmds := make([]*redis.MapStringStringCmd, len(stations))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, s := range stations {
			cmds[i] = pipe.HGetAll(ctx, redisLatestKey(s))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Observation, 0, len(stations))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		obs, err := observationFromHash(stations[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func observationFromHash(station string, fields map[string]string) (domain.Observation, error) {
	temp, errT := strconv.ParseFloat(fields["air_temperature"], 64)
	wind, errW := strconv.ParseFloat(fields["wind_speed"], 64)
	at, errA := time.Parse(time.RFC3339Nano, fields["observed_at"])
	if err := errors.Join(errT, errW, errA); err != nil {
		return domain.Observation{}, fmt.Errorf("decode %s: %w", redisLatestKey(station), err)
	}
	return domain.Observation{
		Station:        station,
		WMOCode:        fields["wmo_code"],
		AirTemperature: temp,
		WindSpeed:      wind,
		Phenomenon:     fields["phenomenon"],
		ObservedAt:     at,
	}, nil
}
