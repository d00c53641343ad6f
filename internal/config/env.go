package config

import "os"

// FromEnv seeds a BuildOptions with the environment-derived defaults.
// CLI flags are layered on top by the caller; everything here can also
// come from the optional .rayimg.env file loaded in main.
func FromEnv() BuildOptions {
	return BuildOptions{
		WheelSource:   WheelLocal,
		PythonVersion: getenv("RAYIMG_PYTHON_VERSION", "3.8"),
		Repo:          getenv("RAYIMG_REPO", "rayproject"),
		Tag:           getenv("RAYIMG_TAG", "nightly"),
		DockerDir:     getenv("RAYIMG_DOCKER_DIR", "docker"),
		DryRun:        os.Getenv("RAYIMG_DRY_RUN") == "true",
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
