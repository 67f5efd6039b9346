package contextstore

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNew_FiltersAndSortsVars(t *testing.T) {
	s := New(Config{
		Vars: map[string]string{
			"VarUser": "Ryan",
			"VarCity": "",
			"Other":   "ignored",
		},
	})

	want := []Fact{{Name: "VarCity", Value: ""}, {Name: "VarUser", Value: "Ryan"}}
	if diff := cmp.Diff(want, s.Vars()); diff != "" {
		t.Errorf("Vars() mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	static := map[string]string{"SystemInfo": "linux"}
	rules := []Rule{{Pattern: "a", Replacement: "b"}}
	s := New(Config{Static: static, RulesA: rules})

	static["SystemInfo"] = "changed"
	rules[0].Pattern = "z"

	if v, _ := s.Static("SystemInfo"); v != "linux" {
		t.Errorf("Static = %q, want linux", v)
	}
	if s.RulesA()[0].Pattern != "a" {
		t.Errorf("RulesA mutated through caller slice")
	}
}

func TestStore_Weather(t *testing.T) {
	s := New(Config{})
	at := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)

	s.SetWeather("晴", at)
	s.SetWeather("获取天气信息时出错: boom", time.Time{})

	if s.Weather() != "获取天气信息时出错: boom" {
		t.Errorf("Weather = %q", s.Weather())
	}
	if !s.WeatherRefreshedAt().Equal(at) {
		t.Errorf("WeatherRefreshedAt = %v, want %v", s.WeatherRefreshedAt(), at)
	}
}

func TestStore_AssetLists(t *testing.T) {
	s := New(Config{})
	s.SetAssetList("通用", "a.png|b.gif")
	s.SetAssetList("Nova", "c.jpg")

	if v, ok := s.AssetList("通用"); !ok || v != "a.png|b.gif" {
		t.Errorf("AssetList(通用) = %q, %v", v, ok)
	}
	if _, ok := s.AssetList("missing"); ok {
		t.Error("AssetList(missing) should be absent")
	}
	if diff := cmp.Diff([]string{"Nova", "通用"}, s.Agents()); diff != "" {
		t.Errorf("Agents() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := New(Config{})
	s.SetAssetList("a", "1.png")
	snap := s.Snapshot()

	s.SetAssetList("a", "2.png")
	s.SetWeather("rain", time.Now())

	if snap.Assets["a"] != "1.png" || snap.Weather != "" {
		t.Errorf("snapshot changed after writes: %+v", snap)
	}
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := New(Config{})
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetWeather("sunny", time.Now())
			s.SetAssetList("a", "x.png")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Weather()
		}()
	}
	wg.Wait()
}
